// Copyright 2016 by Thorsten von Eicken

package shim

import (
	"sync"
	"time"

	"github.com/tve/rflink"
	"github.com/tve/rflink/irq"
)

// Raiser requests an interrupt vector, irq.Dispatcher implements it.
type Raiser interface {
	Raise(v irq.Vector)
}

// SoftTimer is an rflink.Timer emulated with the host clock: a 16-bit counter advancing once per
// tick and a compare channel that raises a vector when the counter reaches the target. Targets
// more than half a wrap away are treated as already passed and fire at once.
//
// Resolution is bounded by the Go scheduler, which makes it usable for slow waveforms only.
type SoftTimer struct {
	mu      sync.Mutex
	start   time.Time
	tick    time.Duration
	target  uint16
	enabled bool
	gen     uint32 // invalidates timers armed for an earlier target
	t       *time.Timer
	irq     Raiser
	vec     irq.Vector
}

var _ rflink.Timer = (*SoftTimer)(nil)

// NewSoftTimer returns a stopped compare timer with the given tick length that raises vec on r.
func NewSoftTimer(tick time.Duration, r Raiser, vec irq.Vector) *SoftTimer {
	if tick <= 0 {
		tick = 10 * time.Microsecond
	}
	return &SoftTimer{start: time.Now(), tick: tick, irq: r, vec: vec}
}

// Tick returns the counter period.
func (s *SoftTimer) Tick() time.Duration { return s.tick }

func (s *SoftTimer) Now() uint16 {
	return uint16(time.Since(s.start) / s.tick)
}

func (s *SoftTimer) SetCompare(target uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = target
	if s.enabled {
		s.arm()
	}
}

func (s *SoftTimer) EnableCompare(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = on
	if on {
		s.arm()
	} else {
		s.disarm()
	}
}

// arm must be called with mu held.
func (s *SoftTimer) arm() {
	s.disarm()
	diff := s.target - s.Now()
	if diff == 0 || diff > 0x8000 {
		s.irq.Raise(s.vec)
		return
	}
	gen := s.gen
	s.t = time.AfterFunc(time.Duration(diff)*s.tick, func() { s.fire(gen) })
}

func (s *SoftTimer) disarm() {
	s.gen++
	if s.t != nil {
		s.t.Stop()
		s.t = nil
	}
}

func (s *SoftTimer) fire(gen uint32) {
	s.mu.Lock()
	ok := s.enabled && s.gen == gen
	s.mu.Unlock()
	if ok {
		s.irq.Raise(s.vec)
	}
}
