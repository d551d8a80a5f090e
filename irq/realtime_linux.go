// Copyright 2016 by Thorsten von Eicken

package irq

import (
	"runtime"
	"syscall"
	"unsafe"
)

// Realtime locks the calling goroutine to its own kernel thread and elevates that
// thread's priority to realtime. It sets the round-robin scheduling policy and uses
// priority level 10 (somewhere in the lower middle of the range). Call it at the top of
// the goroutine that runs Dispatcher.Run.
func Realtime() error {
	runtime.LockOSThread()
	tid := syscall.Gettid()
	res, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(schedRR), uintptr(unsafe.Pointer(&schedParam{10})))
	if res == 0 {
		return nil
	}
	return err
}

const schedRR = 2 // round-robin scheduling policy

type schedParam struct {
	Priority int
}
