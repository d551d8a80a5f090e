// Copyright 2016 by Thorsten von Eicken

// Package field turns typed values into chunk bytes and back.
//
// Values are written with Write, which stops at the first field that does not fit, and read with
// Read, which reports how well the chunk matched the requested fields. Integers are little-endian,
// see package varint for the variable-length alternative.
package field

import (
	"encoding/binary"
	"io"
)

// Encoder is a value that can write itself to a chunk.
type Encoder interface {
	Encode(w io.ByteWriter) error
}

// Decoder is a destination that can fill itself from a chunk.
type Decoder interface {
	Decode(r io.ByteReader) error
}

// Source is an open chunk being read.
type Source interface {
	io.ByteReader
	Remaining() int
}

// Status is the outcome of Read.
type Status byte

const (
	// Valid means every field was decoded and the chunk was consumed exactly.
	Valid Status = iota
	// Invalid means a field could not be decoded or no chunk was open.
	Invalid
	// Incomplete means the chunk ended before every field was decoded.
	Incomplete
	// Partial means every field was decoded but bytes were left over.
	Partial
)

var statusNames = [...]string{"valid", "invalid", "incomplete", "partial"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// OK reports whether every requested field was decoded.
func (s Status) OK() bool { return s == Valid || s == Partial }

// Write encodes fields into w in order, stopping at the first error. The caller is expected to
// abort the chunk on error.
func Write(w io.ByteWriter, fields ...Encoder) error {
	for _, f := range fields {
		if err := f.Encode(w); err != nil {
			return err
		}
	}
	return nil
}

// Read decodes fields from src in order.
func Read(src Source, fields ...Decoder) Status {
	if src == nil {
		return Invalid
	}
	for _, f := range fields {
		if err := f.Decode(src); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return Incomplete
			}
			return Invalid
		}
	}
	if src.Remaining() > 0 {
		return Partial
	}
	return Valid
}

//===== encoders

// Byte is a single byte field.
type Byte byte

// Encode implements Encoder.
func (v Byte) Encode(w io.ByteWriter) error { return w.WriteByte(byte(v)) }

// Uint16 is a little-endian 16-bit field.
type Uint16 uint16

// Encode implements Encoder.
func (v Uint16) Encode(w io.ByteWriter) error { return putLE(w, uint64(v), 2) }

// Int16 is a little-endian signed 16-bit field.
type Int16 int16

// Encode implements Encoder.
func (v Int16) Encode(w io.ByteWriter) error { return putLE(w, uint64(uint16(v)), 2) }

// Uint32 is a little-endian 32-bit field.
type Uint32 uint32

// Encode implements Encoder.
func (v Uint32) Encode(w io.ByteWriter) error { return putLE(w, uint64(v), 4) }

// Bytes is a raw byte run written as is.
type Bytes []byte

// Encode implements Encoder.
func (v Bytes) Encode(w io.ByteWriter) error {
	for _, b := range v {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

func putLE(w io.ByteWriter, v uint64, n int) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	for _, b := range buf[:n] {
		if err := w.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

//===== decoders

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(r io.ByteReader) error

// Decode implements Decoder.
func (f DecoderFunc) Decode(r io.ByteReader) error { return f(r) }

func getLE(r io.ByteReader, n int) (uint64, error) {
	var buf [8]byte
	for i := 0; i < n; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		buf[i] = b
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// ByteTo decodes one byte into p.
func ByteTo(p *byte) Decoder {
	return DecoderFunc(func(r io.ByteReader) error {
		b, err := r.ReadByte()
		if err == nil {
			*p = b
		}
		return err
	})
}

// Uint16To decodes a little-endian 16-bit value into p.
func Uint16To(p *uint16) Decoder {
	return DecoderFunc(func(r io.ByteReader) error {
		v, err := getLE(r, 2)
		if err == nil {
			*p = uint16(v)
		}
		return err
	})
}

// Int16To decodes a little-endian signed 16-bit value into p.
func Int16To(p *int16) Decoder {
	return DecoderFunc(func(r io.ByteReader) error {
		v, err := getLE(r, 2)
		if err == nil {
			*p = int16(uint16(v))
		}
		return err
	})
}

// Uint32To decodes a little-endian 32-bit value into p.
func Uint32To(p *uint32) Decoder {
	return DecoderFunc(func(r io.ByteReader) error {
		v, err := getLE(r, 4)
		if err == nil {
			*p = uint32(v)
		}
		return err
	})
}

// BytesTo fills p completely.
func BytesTo(p []byte) Decoder {
	return DecoderFunc(func(r io.ByteReader) error {
		for i := range p {
			b, err := r.ReadByte()
			if err != nil {
				if err == io.EOF && i > 0 {
					err = io.ErrUnexpectedEOF
				}
				return err
			}
			p[i] = b
		}
		return nil
	})
}

// Rest decodes everything left in the chunk into *p.
func Rest(p *[]byte) Decoder {
	return DecoderFunc(func(r io.ByteReader) error {
		*p = (*p)[:0]
		for {
			b, err := r.ReadByte()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			*p = append(*p, b)
		}
	})
}
