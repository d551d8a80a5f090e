// Copyright 2016 by Thorsten von Eicken

// Package irq binds interrupt sources to handlers through a fixed vector table.
//
// On a host there are no interrupt vectors, so sources (GPIO edges, timers) call Raise and a
// single dispatch goroutine runs the handlers one at a time, the way a single core would. Raise
// never blocks and never allocates; raising a vector that is already pending is coalesced into
// one handler call, just like a pending-interrupt flag.
package irq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tve/rflink"
)

// MaxVectors is the size of the vector table.
const MaxVectors = 8

// Vector identifies an interrupt source.
type Vector uint8

// Handler is the function run for a vector. It runs on the dispatch goroutine and must not block.
type Handler func()

// ErrBusy is returned when registering a vector that already has a handler.
var ErrBusy = errors.New("irq: vector already bound")

// LogPrintf is a function used by the dispatcher to print logging info.
type LogPrintf func(format string, v ...interface{})

// Dispatcher owns the vector table.
type Dispatcher struct {
	mu      sync.Mutex // guards table changes
	table   [MaxVectors]Handler
	pending [MaxVectors]atomic.Bool
	wake    chan struct{}
	counts  [MaxVectors]atomic.Uint32
	log     LogPrintf
}

// NewDispatcher returns an empty dispatcher, the logger may be nil.
func NewDispatcher(logger LogPrintf) *Dispatcher {
	d := &Dispatcher{
		wake: make(chan struct{}, 1),
		log:  func(format string, v ...interface{}) {},
	}
	if logger != nil {
		d.log = func(format string, v ...interface{}) { logger("irq: "+format, v...) }
	}
	return d
}

// Register binds h to vector v.
func (d *Dispatcher) Register(v Vector, h Handler) error {
	if int(v) >= MaxVectors {
		return fmt.Errorf("irq: vector %d out of range", v)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.table[v] != nil {
		return ErrBusy
	}
	d.table[v] = h
	return nil
}

// Unregister removes the handler for v, any pending request for v is dropped.
func (d *Dispatcher) Unregister(v Vector) {
	if int(v) >= MaxVectors {
		return
	}
	d.mu.Lock()
	d.table[v] = nil
	d.mu.Unlock()
	d.pending[v].Store(false)
}

// Raise marks v pending and wakes the dispatch goroutine.
func (d *Dispatcher) Raise(v Vector) {
	if int(v) >= MaxVectors {
		return
	}
	d.pending[v].Store(true)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Count returns how many times the handler for v has run.
func (d *Dispatcher) Count(v Vector) uint32 {
	if int(v) >= MaxVectors {
		return 0
	}
	return d.counts[v].Load()
}

// Run dispatches pending vectors in vector order until ctx is done. Lower vectors have priority.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.log("dispatcher exiting")
			return
		case <-d.wake:
		}
		for d.Poll() {
		}
	}
}

// Poll runs the handler of the highest priority pending vector and reports whether one ran.
// Run calls it in a loop; tests can call it directly to step interrupts.
func (d *Dispatcher) Poll() bool {
	for v := range d.pending {
		if !d.pending[v].Swap(false) {
			continue
		}
		d.mu.Lock()
		h := d.table[v]
		d.mu.Unlock()
		if h == nil {
			d.log("spurious interrupt on vector %d", v)
			continue
		}
		d.counts[v].Add(1)
		h()
		return true
	}
	return false
}

// WatchPin converts edges on pin into requests for vector v until ctx is done. The pin must
// already be armed with the wanted edge. Because the radio's interrupt line is level triggered,
// the pin level is also sampled after each wait and v is raised while the pin reads active, which
// catches edges the OS failed to report.
func (d *Dispatcher) WatchPin(ctx context.Context, pin rflink.GPIO, active int, v Vector,
	poll time.Duration) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	go func() {
		for ctx.Err() == nil {
			if pin.WaitForEdge(poll) {
				d.Raise(v)
			} else if pin.Read() == active {
				d.Raise(v)
				// Give the handler a chance to clear the condition.
				time.Sleep(time.Millisecond)
			}
		}
		d.log("pin %d watcher exiting", pin.Number())
	}()
}
