// Copyright 2016 by Thorsten von Eicken

package crc16

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var checksums = map[string]struct {
	data []byte
	crc  uint16
}{
	"empty":         {[]byte{}, 0xFFFF},
	"group-5-empty": {[]byte{5, 0, 0}, 0xC161},
	"group-5-hdr30": {[]byte{5, 30, 8, 82, 49, 32, 32, 1, 58, 251, 0}, 0xC850},
}

func TestChecksum(t *testing.T) {
	for n, tc := range checksums {
		assert.Equal(t, tc.crc, Checksum(tc.data), n)

		c := New()
		for _, b := range tc.data {
			c.Append(b)
		}
		assert.Equal(t, tc.crc, c.Get(), n)
	}
}

func TestTrailerResidue(t *testing.T) {
	for n, tc := range checksums {
		c := New()
		for _, b := range tc.data {
			c.Append(b)
		}
		assert.False(t, c.Valid() && len(tc.data) > 0, n)
		sum := c.Get()
		c.Append(byte(sum))
		c.Append(byte(sum >> 8))
		assert.True(t, c.Valid(), n)
	}
}

func TestSingleByteCorruption(t *testing.T) {
	frame := []byte{5, 30, 8, 82, 49, 32, 32, 1, 58, 251, 0}
	sum := Checksum(frame)
	frame = append(frame, byte(sum), byte(sum>>8))
	for i := range frame {
		for _, flip := range []byte{0x01, 0x80, 0xFF} {
			c := New()
			for j, b := range frame {
				if i == j {
					b ^= flip
				}
				c.Append(b)
			}
			assert.False(t, c.Valid(), "flip %#x at %d", flip, i)
		}
	}
}

func TestReset(t *testing.T) {
	c := New()
	c.Append(1)
	c.Reset()
	assert.Equal(t, uint16(Initial), c.Get())
}
