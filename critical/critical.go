// Copyright 2016 by Thorsten von Eicken

// Package critical provides the scoped guard used wherever state is shared between an interrupt
// handler and ordinary code.
//
// A Section stands in for masking the interrupts that could touch the guarded state. It must only
// be held for a single read-modify-write, never across a whole frame's worth of bus traffic, and
// sections must not nest on the same Section.
//
// Typical use is
//
//	defer s.Enter().Exit()
package critical

import "sync"

// Section is a bounded region executed with exclusive access to some shared state. The zero
// value is ready to use. A Section must not be copied after first use.
type Section struct {
	mu sync.Mutex
}

// Guard is returned by Enter and releases the section on Exit.
type Guard struct {
	s *Section
}

// Enter acquires the section.
func (s *Section) Enter() Guard {
	s.mu.Lock()
	return Guard{s}
}

// Exit releases the section. Calling Exit on the zero Guard is a no-op.
func (g Guard) Exit() {
	if g.s != nil {
		g.s.mu.Unlock()
	}
}

// Do runs fn inside the section.
func (s *Section) Do(fn func()) {
	defer s.Enter().Exit()
	fn()
}
