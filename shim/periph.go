// Copyright 2016 by Thorsten von Eicken

// Package shim adapts host hardware libraries to the rflink bus and pin interfaces so the same
// drivers can run on top of either periph.io or embd, and provides a software compare timer for
// hosts that have no hardware timer to spare.
package shim

import (
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/tve/rflink"
)

//===== SPI shim for periph.io

// SPI is an rflink.SPI on top of a periph.io SPI port.
type SPI struct {
	port spi.PortCloser
	conn spi.Conn
}

var _ rflink.SPI = (*SPI)(nil)

// OpenSPI opens the named SPI port ("" selects the first one) in mode 0 with 8-bit words at hz.
func OpenSPI(name string, hz int64) (*SPI, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("shim: cannot initialize periph host: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("shim: cannot open SPI port %q: %w", name, err)
	}
	c, err := p.Connect(physic.Frequency(hz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("shim: cannot configure SPI port %q: %w", name, err)
	}
	return &SPI{port: p, conn: c}, nil
}

// Tx performs one chip-select transaction.
func (s *SPI) Tx(w, r []byte) error { return s.conn.Tx(w, r) }

// Close releases the port.
func (s *SPI) Close() error { return s.port.Close() }

//===== GPIO shim for periph.io

// Pin is an rflink.GPIO on top of a periph.io pin.
type Pin struct {
	p       gpio.PinIO
	outErrs atomic.Uint32
}

var _ rflink.GPIO = (*Pin)(nil)

var periphEdges = [...]gpio.Edge{gpio.NoEdge, gpio.RisingEdge, gpio.FallingEdge, gpio.BothEdges}

// OpenPin looks up a pin by name, e.g. "GPIO22".
func OpenPin(name string) (*Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("shim: cannot initialize periph host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("shim: no pin named %q", name)
	}
	return &Pin{p: p}, nil
}

func (g *Pin) In(edge int) error {
	if edge < 0 || edge >= len(periphEdges) {
		return fmt.Errorf("shim: invalid edge %d", edge)
	}
	return g.p.In(gpio.PullNoChange, periphEdges[edge])
}

func (g *Pin) Read() int {
	if g.p.Read() == gpio.High {
		return rflink.GpioHigh
	}
	return rflink.GpioLow
}

func (g *Pin) WaitForEdge(timeout time.Duration) bool { return g.p.WaitForEdge(timeout) }

// Out drives the pin. It cannot return an error, failures are counted in OutErrors.
func (g *Pin) Out(level int) {
	if err := g.p.Out(gpio.Level(level != rflink.GpioLow)); err != nil {
		g.outErrs.Add(1)
	}
}

// OutErrors returns the number of failed Out calls.
func (g *Pin) OutErrors() uint32 { return g.outErrs.Load() }

func (g *Pin) Number() int { return g.p.Number() }

// Close stops edge detection on the pin.
func (g *Pin) Close() error { return g.p.Halt() }
