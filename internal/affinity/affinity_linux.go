//go:build linux

package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCore pins the current OS thread to a specific CPU core. Must be
// called after runtime.LockOSThread().
func pinToCore(cpuID int) error {
	numCPU := runtime.NumCPU()
	if cpuID < 0 || cpuID >= numCPU {
		cpuID = cpuID % numCPU
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpuID)

	return unix.SchedSetaffinity(0, &mask) // 0 = current thread
}

// SetupWorkerAffinity locks the calling goroutine to its OS thread and
// pins that thread to the given worker's core. Returns a cleanup function
// the worker should defer.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()
	_ = pinToCore(workerID)

	return runtime.UnlockOSThread
}
