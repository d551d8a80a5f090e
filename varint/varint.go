// Copyright 2016 by Thorsten von Eicken

// Package varint implements the JeeLabs variable-length signed integer encoding.
//
// Each integer is zig-zag folded and emitted as 7-bit groups, most significant first, with the
// high bit set on the last byte of each number. Small values of either sign take one byte.
//
// Reference: http://jeelabs.org/article/1620c/
package varint

import (
	"bytes"
	"errors"
	"io"
)

// ErrOverflow is returned when a number runs longer than a 64-bit value can hold.
var ErrOverflow = errors.New("varint: value overflows 64 bits")

// MaxLen is the longest encoding of a single value.
const MaxLen = 10

// Append appends the encoding of v to buf.
func Append(buf []byte, v int) []byte {
	u := uint64(v << 1)
	switch {
	case v == 0:
		return append(buf, 0x80)
	case v < 0:
		u = ^u
	}
	var temp [MaxLen]byte
	var i int
	for i = MaxLen - 1; u != 0; i-- {
		temp[i] = byte(u & 0x7f)
		u >>= 7
	}
	temp[MaxLen-1] |= 0x80
	return append(buf, temp[i+1:]...)
}

// Write writes the encoding of v to w. On error some bytes may have been written.
func Write(w io.ByteWriter, v int) error {
	var temp [MaxLen]byte
	for _, b := range Append(temp[:0], v) {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// Read reads one value from r. It returns io.EOF if r is empty and io.ErrUnexpectedEOF if r ends
// in the middle of a value.
func Read(r io.ByteReader) (int, error) {
	var val uint64
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if i == MaxLen {
			return 0, ErrOverflow
		}
		val = val<<7 | uint64(b&0x7f)
		if b&0x80 != 0 {
			if val&1 == 0 {
				return int(val >> 1), nil
			}
			return int(^(val >> 1)), nil
		}
	}
}

// Encode encodes an array of signed ints into a buffer of varint bytes.
func Encode(arr []int) []byte {
	res := []byte{}
	for _, v := range arr {
		res = Append(res, v)
	}
	return res
}

// Decode decodes buffer of varint bytes into an array of signed ints. A trailing partial value
// is ignored.
func Decode(buf []byte) []int {
	res := []int{}
	r := bytes.NewReader(buf)
	for {
		v, err := Read(r)
		if err != nil {
			return res
		}
		res = append(res, v)
	}
}

// Int is a single varint field, see package field.
type Int int

// Encode implements field.Encoder.
func (v Int) Encode(w io.ByteWriter) error { return Write(w, int(v)) }

// Decode implements field.Decoder.
func (v *Int) Decode(r io.ByteReader) error {
	n, err := Read(r)
	if err == nil {
		*v = Int(n)
	}
	return err
}

// Ints is a run of varint fields that extends to the end of the source when decoding.
type Ints []int

// Encode implements field.Encoder.
func (v Ints) Encode(w io.ByteWriter) error {
	for _, n := range v {
		if err := Write(w, n); err != nil {
			return err
		}
	}
	return nil
}

// Decode implements field.Decoder, reading values until r is exhausted.
func (v *Ints) Decode(r io.ByteReader) error {
	*v = (*v)[:0]
	for {
		n, err := Read(r)
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}
		*v = append(*v, n)
	}
}
