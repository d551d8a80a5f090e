// Copyright 2016 by Thorsten von Eicken

package framer

import (
	"github.com/tve/rflink/chunk"
	"github.com/tve/rflink/crc16"
)

// Result tells the caller of Rx.Append what the byte did to the frame in progress.
type Result byte

const (
	// Ignored means no frame is in progress and the byte was not the group id.
	Ignored Result = iota
	// Started means the byte was the group id and a new frame has been opened.
	Started
	// Pending means the byte was absorbed into the open frame.
	Pending
	// Complete means the frame ended with a valid CRC and has been queued.
	Complete
	// Corrupt means the frame ended with a bad CRC and has been dropped.
	Corrupt
	// Dropped means the frame was valid but did not fit in the queue.
	Dropped
)

var resultNames = [...]string{"ignored", "started", "pending", "complete", "corrupt", "dropped"}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "invalid"
}

// Done reports whether the result ends a frame.
func (r Result) Done() bool { return r >= Complete }

type rxState byte

const (
	rxIdle rxState = iota
	rxHeader
	rxLength
	rxData
)

// Rx is the receive half. Append runs on the receiving side, typically the radio's interrupt
// handler, while the application drains completed frames with ReadStart/ReadByte/ReadEnd. Each
// queued chunk holds the header byte followed by the data.
type Rx struct {
	queue chunk.Queue
	group byte
	state rxState
	count int
	crc   crc16.CRC
}

// NewRx returns a receive half for group with capacity bytes of queue storage.
func NewRx(group byte, capacity int) *Rx {
	r := &Rx{}
	r.Init(group, capacity)
	return r
}

// Init allocates the queue storage.
func (r *Rx) Init(group byte, capacity int) {
	r.group = group
	r.queue.Init(capacity, MaxPayload+1)
	r.state = rxIdle
}

// Group returns the group id frames must carry.
func (r *Rx) Group() byte { return r.group }

// Receiving reports whether a frame is open.
func (r *Rx) Receiving() bool { return r.state != rxIdle }

// Append feeds the next byte received after the sync word.
func (r *Rx) Append(b byte) Result {
	switch r.state {
	case rxIdle:
		if b != r.group {
			return Ignored
		}
		r.crc.Reset()
		r.crc.Append(b)
		r.queue.WriteStart()
		r.state = rxHeader
		return Started
	case rxHeader:
		r.crc.Append(b)
		r.queue.WriteByte(b) // a full queue is caught by WriteEnd
		r.state = rxLength
		return Pending
	case rxLength:
		r.crc.Append(b)
		if b > MaxPayload {
			b = MaxPayload
		}
		r.count = int(b) + 2
		r.state = rxData
		return Pending
	}
	r.crc.Append(b)
	if r.count > 2 {
		r.queue.WriteByte(b)
	}
	r.count--
	if r.count > 0 {
		return Pending
	}
	r.state = rxIdle
	if !r.crc.Valid() {
		r.queue.WriteAbort()
		return Corrupt
	}
	if !r.queue.WriteEnd() {
		return Dropped
	}
	return Complete
}

// Abort drops the open frame, if any.
func (r *Rx) Abort() {
	if r.state != rxIdle {
		r.queue.WriteAbort()
		r.state = rxIdle
	}
}

//===== application side

// HasContent reports whether a completed frame is waiting.
func (r *Rx) HasContent() bool { return r.queue.HasContent() }

// ReadStart opens the oldest completed frame.
func (r *Rx) ReadStart() bool { return r.queue.ReadStart() }

// ReadByte returns the next byte of the open frame, the header first.
func (r *Rx) ReadByte() (byte, error) { return r.queue.ReadByte() }

// Remaining returns the number of unread bytes in the open frame.
func (r *Rx) Remaining() int { return r.queue.Remaining() }

// ReadEnd releases the open frame.
func (r *Rx) ReadEnd() { r.queue.ReadEnd() }

// ReadAbort leaves the open frame queued.
func (r *Rx) ReadAbort() { r.queue.ReadAbort() }

// Reading reports whether a frame is open on the application side.
func (r *Rx) Reading() bool { return r.queue.IsReading() }
