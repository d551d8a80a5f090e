// Copyright 2016 by Thorsten von Eicken

package framer

import (
	"errors"
	"io"

	"github.com/tve/rflink/chunk"
	"github.com/tve/rflink/crc16"
)

// ErrTooLong is returned when a native frame's data would exceed MaxPayload.
var ErrTooLong = errors.New("framer: payload too long")

type txState byte

const (
	txIdle txState = iota
	txPreamble
	txSync
	txGroup
	txHeader
	txLength
	txData
	txCrcLow
	txCrcHigh
	txPostfix
	txLegacy
)

// Tx is the transmit half. The application side (Begin*, WriteByte, End) and the sending side
// (Next, NextByte, Source, Finish, Drop) may run concurrently, typically the latter in an
// interrupt handler.
type Tx struct {
	queue chunk.Queue
	group byte
	// writer side
	wKind   Kind
	wData   int
	tooLong bool
	// sender side
	state  txState
	count  int
	header byte
	length byte
	crc    crc16.CRC
}

// NewTx returns a transmit half for group with capacity bytes of queue storage.
func NewTx(group byte, capacity int) *Tx {
	t := &Tx{}
	t.Init(group, capacity)
	return t
}

// Init allocates the queue storage.
func (t *Tx) Init(group byte, capacity int) {
	t.group = group
	t.queue.Init(capacity, chunk.MaxLength)
	t.state = txIdle
}

// Group returns the group id written after the sync byte.
func (t *Tx) Group() byte { return t.group }

// HasContent reports whether a chunk is waiting to be sent.
func (t *Tx) HasContent() bool { return t.queue.HasContent() }

//===== application side

func (t *Tx) begin(kind Kind) bool {
	t.queue.WriteStart()
	t.wKind, t.wData, t.tooLong = kind, 0, false
	return t.queue.WriteByte(byte(kind)) == nil
}

// BeginNative opens a native chunk carrying header. It reports false when the queue is full, the
// chunk must still be closed with End or Abort.
func (t *Tx) BeginNative(header byte) bool {
	if !t.begin(KindNative) {
		return false
	}
	return t.queue.WriteByte(header) == nil
}

// BeginLegacy opens a legacy chunk. The waveform descriptor is the first thing written to it.
func (t *Tx) BeginLegacy() bool {
	return t.begin(KindLegacy)
}

// WriteByte appends to the open chunk, implementing io.ByteWriter.
func (t *Tx) WriteByte(b byte) error {
	if t.wKind == KindNative && t.wData == MaxPayload {
		t.tooLong = true
		t.queue.Invalidate()
		return ErrTooLong
	}
	if err := t.queue.WriteByte(b); err != nil {
		return err
	}
	t.wData++
	return nil
}

// End commits the open chunk and reports whether it was queued. A chunk that overflowed is dropped.
func (t *Tx) End() bool {
	return t.queue.WriteEnd()
}

// Abort drops the open chunk.
func (t *Tx) Abort() {
	t.queue.WriteAbort()
}

//===== sending side

// Next opens the oldest queued chunk and returns its kind. Chunks with an unknown kind or without
// a header are dropped. For KindNative the frame bytes are then pulled with NextByte, for
// KindLegacy the chunk content is read through Source and released with Finish.
func (t *Tx) Next() (Kind, bool) {
	for t.queue.ReadStart() {
		tag, err := t.queue.ReadByte()
		if err != nil {
			t.queue.ReadEnd()
			continue
		}
		switch Kind(tag) {
		case KindNative:
			hdr, err := t.queue.ReadByte()
			if err != nil || t.queue.Remaining() > MaxPayload {
				t.queue.ReadEnd()
				continue
			}
			t.header = hdr
			t.length = byte(t.queue.Remaining())
			t.state, t.count = txPreamble, 0
			return KindNative, true
		case KindLegacy:
			t.state = txLegacy
			return KindLegacy, true
		default:
			t.queue.ReadEnd()
		}
	}
	t.state = txIdle
	return 0, false
}

// Sending reports whether a chunk is open on the sending side.
func (t *Tx) Sending() bool { return t.state != txIdle }

// NextByte returns the next wire byte of the open native frame. Once the frame including its
// first postfix byte is out it releases the chunk and returns false.
func (t *Tx) NextByte() (byte, bool) {
	switch t.state {
	case txPreamble:
		t.count++
		if t.count == PreambleLen {
			t.state = txSync
		}
		return Preamble, true
	case txSync:
		t.state = txGroup
		return Sync, true
	case txGroup:
		t.crc.Reset()
		t.crc.Append(t.group)
		t.state = txHeader
		return t.group, true
	case txHeader:
		t.crc.Append(t.header)
		t.state = txLength
		return t.header, true
	case txLength:
		t.crc.Append(t.length)
		t.state = txData
		return t.length, true
	case txData:
		if b, err := t.queue.ReadByte(); err == nil {
			t.crc.Append(b)
			return b, true
		}
		t.state = txCrcHigh
		return byte(t.crc.Get()), true
	case txCrcHigh:
		t.state = txPostfix
		return byte(t.crc.Get() >> 8), true
	case txPostfix:
		t.Finish()
		return Postfix, true
	}
	return 0, false
}

// Source returns the reader over the open legacy chunk.
func (t *Tx) Source() io.ByteReader { return &t.queue }

// Finish releases the open chunk.
func (t *Tx) Finish() {
	t.queue.ReadEnd()
	t.state = txIdle
}

// Drop discards the open chunk, used when a hardware fault interrupts a transmission.
func (t *Tx) Drop() { t.Finish() }
