// Copyright 2016 by Thorsten von Eicken

package pulse

import (
	"errors"
	"fmt"
	"io"
)

// Pulse is one level held on the output for a number of timer ticks. A pulse of zero ticks ends
// the waveform.
type Pulse struct {
	High  bool
	Ticks uint16
}

// End reports whether p terminates the waveform.
func (p Pulse) End() bool { return p.Ticks == 0 }

func (p Pulse) String() string {
	if p.End() {
		return "end"
	}
	if p.High {
		return fmt.Sprintf("H%d", p.Ticks)
	}
	return fmt.Sprintf("L%d", p.Ticks)
}

// BitOrder selects which data bit goes out first.
type BitOrder byte

const (
	LSBFirst BitOrder = iota
	MSBFirst
)

// Parity selects the optional parity bit.
type Parity byte

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

// ErrBadConfig is returned when decoding a malformed waveform descriptor.
var ErrBadConfig = errors.New("pulse: bad serial config")

// SerialConfig describes an asynchronous serial waveform. The line idles at the mark level, a
// start bit is a space, a one bit is a mark, and stop bits are marks. Inverted swaps mark and
// space: normally mark is high.
type SerialConfig struct {
	BitTicks uint16 // duration of one bit
	Order    BitOrder
	Parity   Parity
	StopBits uint8 // 1 or 2, 0 is taken as 1
	Inverted bool
}

// ConfigLen is the encoded size of a SerialConfig.
const ConfigLen = 3

const (
	flagMSB      = 0x01
	flagParity   = 0x06
	flagTwoStop  = 0x08
	flagInverted = 0x10
)

// Encode writes the descriptor as bit period low byte, high byte, then a flags byte. It is the
// first thing in a legacy chunk.
func (c SerialConfig) Encode(w io.ByteWriter) error {
	flags := byte(c.Parity) << 1 & flagParity
	if c.Order == MSBFirst {
		flags |= flagMSB
	}
	if c.StopBits >= 2 {
		flags |= flagTwoStop
	}
	if c.Inverted {
		flags |= flagInverted
	}
	for _, b := range []byte{byte(c.BitTicks), byte(c.BitTicks >> 8), flags} {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads a descriptor written by Encode.
func (c *SerialConfig) Decode(r io.ByteReader) error {
	var buf [ConfigLen]byte
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		buf[i] = b
	}
	flags := buf[2]
	ticks := uint16(buf[0]) | uint16(buf[1])<<8
	if ticks == 0 || flags&^(flagMSB|flagParity|flagTwoStop|flagInverted) != 0 ||
		Parity(flags&flagParity>>1) > ParityOdd {
		return ErrBadConfig
	}
	*c = SerialConfig{
		BitTicks: ticks,
		Order:    BitOrder(flags & flagMSB),
		Parity:   Parity(flags & flagParity >> 1),
		StopBits: 1,
		Inverted: flags&flagInverted != 0,
	}
	if flags&flagTwoStop != 0 {
		c.StopBits = 2
	}
	return nil
}

// DecodeConfig reads a descriptor from r.
func DecodeConfig(r io.ByteReader) (SerialConfig, error) {
	var c SerialConfig
	err := c.Decode(r)
	return c, err
}

// mark returns the line level for a one bit.
func (c SerialConfig) mark() bool { return !c.Inverted }

// IdleHigh reports the line level between bytes and after the waveform.
func (c SerialConfig) IdleHigh() bool { return c.mark() }

// SerialEncoder expands a byte stream into pulses, one pulse per bit.
type SerialEncoder struct {
	cfg  SerialConfig
	src  io.ByteReader
	bits [12]bool // levels of the current character
	n, i int
	done bool
}

// Reset starts encoding src with cfg.
func (e *SerialEncoder) Reset(cfg SerialConfig, src io.ByteReader) {
	if cfg.StopBits == 0 {
		cfg.StopBits = 1
	}
	e.cfg, e.src = cfg, src
	e.n, e.i, e.done = 0, 0, cfg.BitTicks == 0 || src == nil
}

// load fills bits with the frame for b.
func (e *SerialEncoder) load(b byte) {
	mark := e.cfg.mark()
	n := 0
	e.bits[n] = !mark // start
	n++
	ones := 0
	for i := 0; i < 8; i++ {
		bit := b>>i&1 != 0
		if e.cfg.Order == MSBFirst {
			bit = b>>(7-i)&1 != 0
		}
		if bit {
			ones++
		}
		e.bits[n] = bit == mark
		n++
	}
	switch e.cfg.Parity {
	case ParityEven:
		e.bits[n] = (ones&1 == 1) == mark
		n++
	case ParityOdd:
		e.bits[n] = (ones&1 == 0) == mark
		n++
	}
	for s := uint8(0); s < e.cfg.StopBits && s < 2; s++ {
		e.bits[n] = mark
		n++
	}
	e.n, e.i = n, 0
}

// Next returns the next pulse, or the end pulse once the source is exhausted.
func (e *SerialEncoder) Next() Pulse {
	if e.done {
		return Pulse{}
	}
	if e.i == e.n {
		b, err := e.src.ReadByte()
		if err != nil {
			e.done = true
			return Pulse{}
		}
		e.load(b)
	}
	p := Pulse{High: e.bits[e.i], Ticks: e.cfg.BitTicks}
	e.i++
	return p
}
