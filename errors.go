package kestrel

import (
	"errors"
	"fmt"
)

// Kind classifies the reason a Status-wrapped operation failed.
type Kind int

const (
	// KindOK means no error; callers should not encounter a Status of this kind.
	KindOK Kind = iota
	// KindInvalid marks a bad argument or a rejected submission (e.g. rate-limited).
	KindInvalid
	// KindCancelled marks a stop that was requested before or during the operation.
	KindCancelled
	// KindShutdown marks an operation attempted after Shutdown began.
	KindShutdown
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalid:
		return "invalid"
	case KindCancelled:
		return "cancelled"
	case KindShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Sentinel errors identifying each Kind, for use with errors.Is.
var (
	ErrInvalid     = &Status{kind: KindInvalid, msg: "invalid argument"}
	ErrCancelled   = &Status{kind: KindCancelled, msg: "operation cancelled"}
	ErrShutdown    = &Status{kind: KindShutdown, msg: "pool is shut down"}
	ErrRateLimited = &Status{kind: KindInvalid, msg: "submission rejected by rate limiter"}
)

// Status is the error type returned by every fallible operation in this
// package. It carries a Kind for cheap classification plus an optional
// wrapped cause.
type Status struct {
	kind Kind
	msg  string
	err  error
}

// NewStatus builds a Status of the given kind wrapping cause, which may be nil.
func NewStatus(kind Kind, msg string, cause error) *Status {
	return &Status{kind: kind, msg: msg, err: cause}
}

func (s *Status) Error() string {
	if s.err != nil {
		return fmt.Sprintf("kestrel: %s: %v", s.msg, s.err)
	}
	return fmt.Sprintf("kestrel: %s", s.msg)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As. Matching against
// the Kind-identifying sentinels is done by Is.
func (s *Status) Unwrap() error {
	return s.err
}

// Is reports whether target shares this Status's Kind, so that
// errors.Is(err, ErrShutdown) works regardless of message or wrapped cause.
func (s *Status) Is(target error) bool {
	other, ok := target.(*Status)
	if !ok {
		return false
	}
	return other.kind == s.kind
}

// Kind returns the classification of this Status.
func (s *Status) Kind() Kind {
	return s.kind
}

// IsInvalid reports whether err is an Invalid-kind Status.
func IsInvalid(err error) bool {
	var s *Status
	return errors.As(err, &s) && s.kind == KindInvalid
}

// IsCancelled reports whether err is a Cancelled-kind Status.
func IsCancelled(err error) bool {
	var s *Status
	return errors.As(err, &s) && s.kind == KindCancelled
}

// IsShutdown reports whether err is a Shutdown-kind Status.
func IsShutdown(err error) bool {
	var s *Status
	return errors.As(err, &s) && s.kind == KindShutdown
}

func invalidf(format string, args ...any) error {
	return NewStatus(KindInvalid, fmt.Sprintf(format, args...), nil)
}
