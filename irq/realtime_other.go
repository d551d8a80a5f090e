// Copyright 2016 by Thorsten von Eicken

//go:build !linux

package irq

import (
	"errors"
	"runtime"
)

// Realtime locks the calling goroutine to its own kernel thread. Raising the thread's priority
// is only supported on linux.
func Realtime() error {
	runtime.LockOSThread()
	return errors.New("irq: realtime priority not supported on " + runtime.GOOS)
}
