// Copyright 2016 by Thorsten von Eicken

// Package pulse bit-bangs serial-style waveforms on an output pin, one timer compare per pulse.
//
// It is used to send legacy on/off keyed packets through a transceiver whose packet engine is
// switched off: the radio's data pin keys the carrier and the Engine toggles the pin. The waveform
// mirrors an asynchronous serial line, see SerialConfig.
package pulse

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/tve/rflink"
)

// Output is the pin the waveform is driven on.
type Output interface {
	Out(level int)
}

// Engine drives one waveform at a time from timer compare interrupts. OnCompare must be bound to
// the timer's compare vector.
type Engine struct {
	mu     sync.Mutex
	timer  rflink.Timer
	pin    Output
	enc    SerialEncoder
	active bool
	target uint16
	idle   int
	done   func()
	pulses atomic.Uint32
}

// NewEngine returns an idle engine.
func NewEngine(timer rflink.Timer, pin Output) *Engine {
	return &Engine{timer: timer, pin: pin}
}

func level(high bool) int {
	if high {
		return rflink.GpioHigh
	}
	return rflink.GpioLow
}

// SendFromSource starts sending the bytes read from src with cfg. It is a no-op returning true
// while a waveform is in progress. Otherwise it returns false when src yields nothing, in which
// case done is not called. Once started, done is called from OnCompare after the line has been
// returned to its idle level.
func (e *Engine) SendFromSource(cfg SerialConfig, src io.ByteReader, done func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active {
		return true
	}
	e.enc.Reset(cfg, src)
	e.idle = level(cfg.IdleHigh())
	p := e.enc.Next()
	if p.End() {
		e.pin.Out(e.idle)
		return false
	}
	e.active, e.done = true, done
	e.pin.Out(level(p.High))
	e.pulses.Add(1)
	e.target = e.timer.Now() + p.Ticks
	e.timer.SetCompare(e.target)
	e.timer.EnableCompare(true)
	return true
}

// OnCompare is the timer compare handler: it ends the current pulse and starts the next one.
func (e *Engine) OnCompare() {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	p := e.enc.Next()
	if !p.End() {
		e.pin.Out(level(p.High))
		e.pulses.Add(1)
		e.target += p.Ticks
		e.timer.SetCompare(e.target)
		e.mu.Unlock()
		return
	}
	e.stop()
	done := e.done
	e.done = nil
	e.mu.Unlock()
	if done != nil {
		done()
	}
}

func (e *Engine) stop() {
	e.timer.EnableCompare(false)
	e.pin.Out(e.idle)
	e.active = false
}

// Abort stops the waveform in progress without calling its done function and reports whether
// there was one.
func (e *Engine) Abort() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return false
	}
	e.stop()
	e.done = nil
	return true
}

// Active reports whether a waveform is in progress.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Pulses returns the number of pulses started since creation.
func (e *Engine) Pulses() uint32 { return e.pulses.Load() }
