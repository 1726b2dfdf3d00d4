//go:build darwin

package affinity

import "runtime"

// SetupWorkerAffinity locks the goroutine to an OS thread. Per-core pinning
// has no public API on macOS, so this only buys thread stickiness, not
// cache-locality guarantees.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
