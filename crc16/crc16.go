// Copyright 2016 by Thorsten von Eicken

// Package crc16 is the incremental CRC protecting RF12 frames.
//
// It is the reflected CRC-16 with polynomial 0xA001 (as computed by avr-libc's _crc16_update),
// seeded with 0xFFFF. The sender appends the CRC low byte first; a receiver that folds the two
// trailer bytes into its own accumulator ends up with zero when the frame is intact.
package crc16

// Initial is the value the accumulator starts a frame with.
const Initial = 0xFFFF

// Polynomial is the reflected generator polynomial.
const Polynomial = 0xA001

// CRC is a running CRC-16. The zero value is not reset; call Reset before the first Append.
type CRC struct {
	v uint16
}

// New returns a reset accumulator.
func New() CRC { return CRC{v: Initial} }

// Reset starts a new frame.
func (c *CRC) Reset() { c.v = Initial }

// Append folds b into the accumulator.
func (c *CRC) Append(b byte) { c.v = Update(c.v, b) }

// Get returns the current value.
func (c *CRC) Get() uint16 { return c.v }

// Valid reports whether the trailer folded in matched, i.e. the accumulator holds the zero residue.
func (c *CRC) Valid() bool { return c.v == 0 }

// Update folds one byte into crc.
func Update(crc uint16, b byte) uint16 {
	crc ^= uint16(b)
	for i := 0; i < 8; i++ {
		if crc&1 != 0 {
			crc = (crc >> 1) ^ Polynomial
		} else {
			crc >>= 1
		}
	}
	return crc
}

// Checksum computes the CRC of data from the initial value.
func Checksum(data []byte) uint16 {
	crc := uint16(Initial)
	for _, b := range data {
		crc = Update(crc, b)
	}
	return crc
}
