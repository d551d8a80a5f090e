// Copyright 2016 by Thorsten von Eicken

// Package ring implements a fixed-capacity circular byte buffer with transactional writes and
// reads, meant to be shared between one producer and one consumer where one of them runs in
// interrupt context.
//
// Each side may have one open transaction. Bytes written inside a write transaction are invisible
// to the reader until WriteEnd, and bytes consumed inside a read transaction are not released to
// the writer until ReadEnd, so either side can roll back with WriteAbort or ReadAbort without
// disturbing the other. Start/End pairs nest: a second Start only extends the open transaction
// and the outermost End commits.
//
// The buffer holds capacity+1 bytes, one slot always stays empty to tell full from empty.
package ring

import "github.com/tve/rflink/critical"

// Slot is a reserved byte position whose value can be filled in later with Patch.
type Slot int

// Ring is a transactional byte ring. It must be initialized with Init or created with New, and
// must not be copied after first use.
type Ring struct {
	cs      critical.Section
	buf     []byte
	head    int // next position to write
	tail    int // next position to read
	wMark   int // head at WriteStart
	rMark   int // tail at ReadStart
	writing int // nesting depth of the open write transaction
	reading int // nesting depth of the open read transaction
}

// New allocates a ring able to hold capacity bytes.
func New(capacity int) *Ring {
	r := &Ring{}
	r.Init(capacity)
	return r
}

// Init allocates the backing storage. It is the only allocation a ring ever makes.
func (r *Ring) Init(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	r.buf = make([]byte, capacity+1)
	r.Clear()
}

func (r *Ring) next(i int) int {
	i++
	if i == len(r.buf) {
		return 0
	}
	return i
}

// used returns the number of bytes between from and to.
func (r *Ring) used(from, to int) int {
	n := to - from
	if n < 0 {
		n += len(r.buf)
	}
	return n
}

// writeLimit is the position the writer must not reach. While a read is open the reader may roll
// back to its mark, so that is the limit.
func (r *Ring) writeLimit() int {
	if r.reading > 0 {
		return r.rMark
	}
	return r.tail
}

// readLimit is the position the reader must not pass. Uncommitted bytes start at the write mark.
func (r *Ring) readLimit() int {
	if r.writing > 0 {
		return r.wMark
	}
	return r.head
}

func (r *Ring) space() int { return len(r.buf) - 1 - r.used(r.writeLimit(), r.head) }
func (r *Ring) size() int  { return r.used(r.tail, r.readLimit()) }

// Capacity returns the number of bytes the ring can hold.
func (r *Ring) Capacity() int { return len(r.buf) - 1 }

// Size returns the number of committed bytes available to the reader.
func (r *Ring) Size() int {
	defer r.cs.Enter().Exit()
	return r.size()
}

// Space returns the number of bytes the writer can still append.
func (r *Ring) Space() int {
	defer r.cs.Enter().Exit()
	return r.space()
}

// Empty reports whether no committed byte is available to the reader.
func (r *Ring) Empty() bool { return r.Size() == 0 }

// Clear drops all content and any open transactions.
func (r *Ring) Clear() {
	defer r.cs.Enter().Exit()
	r.head, r.tail, r.wMark, r.rMark = 0, 0, 0, 0
	r.writing, r.reading = 0, 0
}

//===== writer side

// WriteStart opens, or extends, the write transaction.
func (r *Ring) WriteStart() {
	defer r.cs.Enter().Exit()
	if r.writing == 0 {
		r.wMark = r.head
	}
	r.writing++
}

// Put appends b if there is space and reports whether it did. Outside of a transaction the byte
// is committed immediately.
func (r *Ring) Put(b byte) bool {
	defer r.cs.Enter().Exit()
	if r.space() == 0 {
		return false
	}
	r.buf[r.head] = b
	r.head = r.next(r.head)
	return true
}

// Reserve appends a zero placeholder byte whose value can be set with Patch before the
// transaction is committed. It must only be used inside a write transaction.
func (r *Ring) Reserve() (Slot, bool) {
	defer r.cs.Enter().Exit()
	if r.writing == 0 || r.space() == 0 {
		return 0, false
	}
	s := Slot(r.head)
	r.buf[r.head] = 0
	r.head = r.next(r.head)
	return s, true
}

// Patch sets the value of a reserved slot. The slot is not yet visible to the reader so no
// critical section is needed.
func (r *Ring) Patch(s Slot, b byte) {
	r.buf[s] = b
}

// WriteEnd closes one level of the write transaction, committing it at the outermost level.
func (r *Ring) WriteEnd() {
	defer r.cs.Enter().Exit()
	if r.writing > 0 {
		r.writing--
	}
}

// WriteAbort drops everything written since the outermost WriteStart and closes the transaction.
func (r *Ring) WriteAbort() {
	defer r.cs.Enter().Exit()
	if r.writing > 0 {
		r.head = r.wMark
		r.writing = 0
	}
}

// IsWriting reports whether a write transaction is open.
func (r *Ring) IsWriting() bool {
	defer r.cs.Enter().Exit()
	return r.writing > 0
}

//===== reader side

// ReadStart opens, or extends, the read transaction.
func (r *Ring) ReadStart() {
	defer r.cs.Enter().Exit()
	if r.reading == 0 {
		r.rMark = r.tail
	}
	r.reading++
}

// Get consumes the next committed byte.
func (r *Ring) Get() (byte, bool) {
	defer r.cs.Enter().Exit()
	if r.size() == 0 {
		return 0, false
	}
	b := r.buf[r.tail]
	r.tail = r.next(r.tail)
	return b, true
}

// Peek returns the next committed byte without consuming it.
func (r *Ring) Peek() (byte, bool) {
	defer r.cs.Enter().Exit()
	if r.size() == 0 {
		return 0, false
	}
	return r.buf[r.tail], true
}

// ReadEnd closes one level of the read transaction, releasing the consumed bytes to the writer
// at the outermost level.
func (r *Ring) ReadEnd() {
	defer r.cs.Enter().Exit()
	if r.reading > 0 {
		r.reading--
	}
}

// ReadAbort puts back everything read since the outermost ReadStart and closes the transaction.
func (r *Ring) ReadAbort() {
	defer r.cs.Enter().Exit()
	if r.reading > 0 {
		r.tail = r.rMark
		r.reading = 0
	}
}

// IsReading reports whether a read transaction is open.
func (r *Ring) IsReading() bool {
	defer r.cs.Enter().Exit()
	return r.reading > 0
}
