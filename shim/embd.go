// Copyright 2016 by Thorsten von Eicken

package shim

// The embd backend exists so hosts that embd supports but periph.io does not can still run the
// radio. Only one SPI bus configuration is offered.

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"

	"github.com/tve/rflink"
)

// InitEmbd detects the host and initializes embd's GPIO and SPI drivers.
func InitEmbd() error {
	if err := embd.InitGPIO(); err != nil {
		return fmt.Errorf("shim: embd GPIO: %w", err)
	}
	if err := embd.InitSPI(); err != nil {
		embd.CloseGPIO()
		return fmt.Errorf("shim: embd SPI: %w", err)
	}
	return nil
}

// CloseEmbd releases what InitEmbd set up.
func CloseEmbd() {
	embd.CloseSPI()
	embd.CloseGPIO()
}

//===== SPI shim for embd

// EmbdSPI is an rflink.SPI on an embd SPI bus, mode 0, 8 bits.
type EmbdSPI struct {
	embd.SPIBus
}

var _ rflink.SPI = (*EmbdSPI)(nil)

// NewEmbdSPI opens SPI bus channel ch at hz.
func NewEmbdSPI(ch byte, hz int) *EmbdSPI {
	return &EmbdSPI{embd.NewSPIBus(embd.SPIMode0, ch, hz, 8, 0)}
}

// Tx performs one transaction, embd exchanges in place so w is copied into r first.
func (s *EmbdSPI) Tx(w, r []byte) error {
	copy(r, w)
	return s.TransferAndReceiveData(r)
}

//===== GPIO shim for embd

// EmbdPin is an rflink.GPIO on an embd digital pin.
type EmbdPin struct {
	p        embd.DigitalPin
	dir      embd.Direction
	watching bool
	edge     chan struct{}
	outErrs  atomic.Uint32
}

var _ rflink.GPIO = (*EmbdPin)(nil)

var embdEdges = [...]embd.Edge{embd.EdgeNone, embd.EdgeRising, embd.EdgeFalling, embd.EdgeBoth}

// NewEmbdPin opens a pin by embd key, e.g. "GPIO_22" or 22.
func NewEmbdPin(key interface{}) (*EmbdPin, error) {
	g, err := embd.NewDigitalPin(key)
	if err != nil {
		return nil, fmt.Errorf("shim: embd pin %v: %w", key, err)
	}
	return &EmbdPin{p: g, dir: embd.In, edge: make(chan struct{}, 1)}, nil
}

func (g *EmbdPin) In(edge int) error {
	if edge < 0 || edge >= len(embdEdges) {
		return fmt.Errorf("shim: invalid edge %d", edge)
	}
	if err := g.p.SetDirection(embd.In); err != nil {
		return err
	}
	g.dir = embd.In
	g.stopWatching()
	if edge == rflink.GpioNoEdge {
		return nil
	}
	if err := g.p.Watch(embdEdges[edge], g.edgeCB); err != nil {
		return err
	}
	g.watching = true
	return nil
}

func (g *EmbdPin) Read() int {
	v, _ := g.p.Read()
	return v
}

func (g *EmbdPin) WaitForEdge(timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-g.edge:
		return true
	case <-t.C:
		return false
	}
}

func (g *EmbdPin) Out(level int) {
	if g.dir != embd.Out {
		g.stopWatching()
		if err := g.p.SetDirection(embd.Out); err != nil {
			g.outErrs.Add(1)
			return
		}
		g.dir = embd.Out
	}
	if err := g.p.Write(level); err != nil {
		g.outErrs.Add(1)
	}
}

// OutErrors returns the number of failed Out calls.
func (g *EmbdPin) OutErrors() uint32 { return g.outErrs.Load() }

func (g *EmbdPin) Number() int { return g.p.N() }

// Close stops edge detection and releases the pin.
func (g *EmbdPin) Close() error {
	g.stopWatching()
	return g.p.Close()
}

func (g *EmbdPin) stopWatching() {
	if g.watching {
		g.p.StopWatching()
		g.watching = false
	}
}

func (g *EmbdPin) edgeCB(embd.DigitalPin) {
	select {
	case g.edge <- struct{}{}:
	default:
	}
}
