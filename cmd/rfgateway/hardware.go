// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tve/rflink"
	"github.com/tve/rflink/irq"
	"github.com/tve/rflink/rfm12"
	"github.com/tve/rflink/shim"
	"github.com/tve/rflink/spimux"
)

// Interrupt vectors, the radio has priority over the pulse timer.
const (
	vecRadio irq.Vector = 0
	vecTimer irq.Vector = 1
)

// pins is what a host backend provides.
type pins struct {
	spi  rflink.SPI
	intr rflink.GPIO
	data rflink.GPIO // nil without a data pin
	sel  rflink.GPIO // nil without a chip select mux
	done func()      // backend teardown, may be nil
}

func openPeriph(rc RadioConfig) (*pins, error) {
	bus, err := shim.OpenSPI(rc.Spi, int64(rc.SpiHz))
	if err != nil {
		return nil, err
	}
	p := &pins{spi: bus}
	open := func(name string) (rflink.GPIO, error) { return shim.OpenPin(name) }
	if err := p.openPins(rc, open); err != nil {
		p.close(nil)
		return nil, err
	}
	return p, nil
}

func openEmbd(rc RadioConfig) (*pins, error) {
	if err := shim.InitEmbd(); err != nil {
		return nil, err
	}
	ch := 0
	if rc.Spi != "" {
		n, err := strconv.Atoi(rc.Spi)
		if err != nil || n < 0 || n > 1 {
			shim.CloseEmbd()
			return nil, fmt.Errorf("embd SPI channel must be 0 or 1, not %q", rc.Spi)
		}
		ch = n
	}
	p := &pins{spi: shim.NewEmbdSPI(byte(ch), rc.SpiHz), done: shim.CloseEmbd}
	open := func(name string) (rflink.GPIO, error) { return shim.NewEmbdPin(name) }
	if err := p.openPins(rc, open); err != nil {
		p.close(nil)
		return nil, err
	}
	return p, nil
}

func (p *pins) openPins(rc RadioConfig, open func(string) (rflink.GPIO, error)) error {
	var err error
	if p.intr, err = open(rc.IntrPin); err != nil {
		return err
	}
	if rc.DataPin != "" {
		if p.data, err = open(rc.DataPin); err != nil {
			return err
		}
	}
	if rc.CSMuxPin != "" {
		if p.sel, err = open(rc.CSMuxPin); err != nil {
			return err
		}
	}
	return nil
}

// close releases the pins and the bus. Pins that failed to drive their output are reported to
// logger if it is not nil.
func (p *pins) close(logger *zap.SugaredLogger) {
	for name, g := range map[string]rflink.GPIO{"intr": p.intr, "data": p.data, "sel": p.sel} {
		if g == nil {
			continue
		}
		if oe, ok := g.(interface{ OutErrors() uint32 }); ok && logger != nil {
			if n := oe.OutErrors(); n > 0 {
				logger.Warnf("%s pin: %d failed writes", name, n)
			}
		}
		if c, ok := g.(io.Closer); ok {
			c.Close()
		}
	}
	if c, ok := p.spi.(io.Closer); ok {
		c.Close()
	}
	if p.done != nil {
		p.done()
	}
}

// bus returns the SPI connection for the radio, going through the chip select mux if there is
// one.
func (p *pins) bus(rc RadioConfig) rflink.SPI {
	if p.sel == nil {
		return p.spi
	}
	conns := [2]*spimux.Conn{}
	conns[0], conns[1] = spimux.New(p.spi, p.sel)
	return conns[rc.CSMuxValue]
}

// startRadio opens the hardware, creates the radio and starts interrupt dispatching. The
// returned channel is signalled whenever a packet has been received.
func startRadio(ctx context.Context, rc RadioConfig, logger *zap.SugaredLogger,
) (*rfm12.Radio, <-chan struct{}, error) {
	logger.Debugf("Configuring radio for %s: %+v", rc.Prefix, rc)
	var p *pins
	var err error
	switch rc.Backend {
	case "periph":
		p, err = openPeriph(rc)
	case "embd":
		p, err = openEmbd(rc)
	default:
		err = fmt.Errorf("unknown backend %q", rc.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	d := irq.NewDispatcher(logger.Debugf)
	var timer rflink.Timer
	if p.data != nil {
		timer = shim.NewSoftTimer(rc.TimerTick, d, vecTimer)
	}
	notify := make(chan struct{}, 1)
	radio, err := rfm12.New(p.bus(rc), p.intr, p.data, timer, rfm12.RadioOpts{
		Group:    rc.Group,
		Band:     rc.Band,
		Freq:     rc.Freq,
		Rate:     rc.Rate,
		RxNotify: notify,
		Logger:   rfm12.LogPrintf(logger.Debugf),
	})
	if err != nil {
		p.close(logger)
		return nil, nil, err
	}
	if err := radio.Attach(d, vecRadio, vecTimer); err != nil {
		p.close(logger)
		return nil, nil, err
	}

	d.WatchPin(ctx, p.intr, rflink.GpioLow, vecRadio, 10*time.Millisecond)
	go func() {
		if err := irq.Realtime(); err != nil {
			logger.Warnf("running interrupt dispatch at normal priority: %s", err)
		}
		d.Run(ctx)
		p.close(logger)
	}()
	logger.Infof("RF12 radio ready, group %d, %s", rc.Group, rc.Band)
	return radio, notify, nil
}
