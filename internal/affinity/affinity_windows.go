//go:build windows

package affinity

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// pinToCore pins the current OS thread to a specific CPU core. Must be
// called after runtime.LockOSThread().
func pinToCore(cpuID int) error {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = cpuID % numCPU
	}

	handle, _, _ := getCurrentThread.Call()

	// Bit N = CPU N.
	mask := uintptr(1) << uintptr(cpuID)

	prevMask, _, err := setThreadAffinityMask.Call(handle, mask)
	if prevMask == 0 {
		return err
	}
	return nil
}

// SetupWorkerAffinity locks the calling goroutine to its OS thread and
// pins that thread to the given worker's core. Returns a cleanup function
// the worker should defer.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()
	_ = pinToCore(workerID)
	return runtime.UnlockOSThread
}
