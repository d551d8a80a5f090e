// Copyright 2017 by Thorsten von Eicken

// Package spimux shares one SPI chip select between two devices.
package spimux

import (
	"sync"

	"github.com/tve/rflink"
)

// Conn represents a connection to a device on an SPI bus with a multiplexed chip select.
//
// The purpose of spimux.Conn is to allow two devices to be connected to SPI buses
// that only have a single chip select line. This is accomplished by placing a demux
// on the CS line such that an extra gpio pin can direct the chip select to either
// of the two devices. The Tx function sets the demux select for the appropriate device
// and then performs a std transaction.
//
// A sample circuit is to use an 74LVC1G19 demux with the SPI CS connected to E, the
// gpio select pin connected to A, and the CS inputs of the two devices attached to
// Y0 and Y1 respectively. A pull-down resistor on the A input of the demux is recommended
// to ensure both CS remain inactive when the SPI CS is not driven.
//
// Both devices share the bus speed and mode.
type Conn struct {
	mu     *sync.Mutex // prevent concurrent access to shared SPI bus
	bus    rflink.SPI  // the underlying SPI bus with shared chip select
	selPin rflink.GPIO // pin to select between two devices
	sel    int         // select value for this device
}

var _ rflink.SPI = (*Conn)(nil)

// New returns two connections for the provided bus, the first one using low for the
// select pin, and the second using high.
func New(bus rflink.SPI, selPin rflink.GPIO) (*Conn, *Conn) {
	mu := &sync.Mutex{}
	return &Conn{mu, bus, selPin, rflink.GpioLow}, &Conn{mu, bus, selPin, rflink.GpioHigh}
}

// Tx sets the select pin to the correct value and calls the underlying Tx.
func (c *Conn) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selPin.Out(c.sel)
	return c.bus.Tx(w, r)
}

// Select returns the select pin level used for this device.
func (c *Conn) Select() int { return c.sel }
