// Copyright 2016 by Thorsten von Eicken

// Package framer wraps chunks in the JeeLabs RF12 over-the-air frame and unwraps them again.
//
// The wire format is
//
//	AA AA AA 2D <group> <header> <length> <data...> <crcLow> <crcHigh> AA
//
// where the CRC (see package crc16) covers group, header, length and data. Frames are produced
// and consumed one byte at a time, no buffer ever holds a whole frame: the transmit half streams
// straight out of its chunk queue and the receive half streams straight into its own.
package framer

// Fixed wire bytes.
const (
	Preamble = 0xAA
	Sync     = 0x2D
	Postfix  = 0xAA

	PreambleLen = 3
)

// MaxPayload is the largest data section of a frame.
const MaxPayload = 63

// Kind tags each outgoing chunk with the path that must send it. It is the first byte of every
// transmit chunk.
type Kind byte

const (
	// KindNative chunks hold a header byte followed by the data, sent by the radio's packet engine.
	KindNative Kind = 0x4E
	// KindLegacy chunks hold a serial waveform descriptor followed by the bytes to bit-bang.
	KindLegacy Kind = 0x4C
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}
