// Copyright 2016 by Thorsten von Eicken

// This file implements a small trace of mode transitions that can be dumped later for
// debugging. Recording happens in the interrupt handler so it must not allocate.

package rfm12

import (
	"fmt"
	"io"
	"time"
)

const traceLen = 32

// Transition is one recorded mode change.
type Transition struct {
	At       time.Time
	From, To Mode
	Reason   string
}

type trace struct {
	buf  [traceLen]Transition
	next int
	full bool
}

func (t *trace) push(from, to Mode, reason string) {
	t.buf[t.next] = Transition{At: time.Now(), From: from, To: to, Reason: reason}
	t.next++
	if t.next == traceLen {
		t.next = 0
		t.full = true
	}
}

// entries returns the recorded transitions, oldest first.
func (t *trace) entries() []Transition {
	if !t.full {
		return append([]Transition(nil), t.buf[:t.next]...)
	}
	out := make([]Transition, 0, traceLen)
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// PrintTrace writes the transitions in tr relative to the first one.
func PrintTrace(w io.Writer, tr []Transition) {
	if len(tr) == 0 {
		fmt.Fprintf(w, "No transitions were recorded\n")
		return
	}
	t0 := tr[0].At
	for _, ev := range tr {
		fmt.Fprintf(w, "%.6fs: %s -> %s (%s)\n", ev.At.Sub(t0).Seconds(), ev.From, ev.To, ev.Reason)
	}
}
