// Copyright 2016 by Thorsten von Eicken

package rflink

import (
	"errors"
	"time"
)

// SPI is a bus connection to a single chip. Each call to Tx is one chip-select transaction:
// len(w) bytes are shifted out while the same number of bytes are shifted into r.
type SPI interface {
	Tx(w, r []byte) error
}

// GPIO is a single pin. In configures the pin as input and arms an edge interrupt, GpioNoEdge
// disables it. Out configures the pin as output, which also drops any edge interrupt.
type GPIO interface {
	In(edge int) error
	Read() int
	WaitForEdge(timeout time.Duration) bool
	Out(level int)
	Number() int
}

const (
	GpioLow         = 0
	GpioHigh        = 1
	GpioNoEdge      = 0
	GpioRisingEdge  = 1
	GpioFallingEdge = 2
	GpioBothEdges   = 3
)

// Timer is a free running 16-bit tick counter with a single compare channel. When enabled, the
// compare interrupt fires once the counter reaches the compare target.
type Timer interface {
	Now() uint16
	SetCompare(target uint16)
	EnableCompare(on bool)
}

// ErrArbitrationLost is returned by a bus when it could not complete an exchange as bus
// controller. Bus implementations should wrap it so errors.Is works.
var ErrArbitrationLost = errors.New("rflink: bus arbitration lost")
