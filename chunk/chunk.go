// Copyright 2016 by Thorsten von Eicken

// Package chunk layers length-prefixed records ("chunks") on top of a transactional byte ring.
//
// A writer opens a chunk, which reserves the length byte, appends payload bytes and then commits
// or aborts the whole chunk. A reader opens the oldest chunk, reads at most its declared length
// and closes it, which discards whatever it did not read. A chunk is visible to the reader in full
// or not at all, and an aborted write never touches previously committed chunks.
//
// One goroutine (or interrupt handler) may write while another reads. The writer side and the
// reader side each keep their own state and must not be used concurrently with themselves.
package chunk

import (
	"errors"
	"io"

	"github.com/tve/rflink/ring"
)

// MaxLength is the largest chunk the one-byte length prefix can describe.
const MaxLength = 255

var (
	// ErrFull is returned when a byte does not fit in the ring or in the chunk's maximum length.
	// The open chunk is then invalid and WriteEnd will drop it.
	ErrFull = errors.New("chunk: queue full")
	// ErrNotOpen is returned when writing without WriteStart.
	ErrNotOpen = errors.New("chunk: no chunk open")
)

// Queue is a FIFO of chunks. It must be initialized with Init or created with New and must not
// be copied after first use.
type Queue struct {
	ring   ring.Ring
	maxLen int
	// writer state
	writing bool
	valid   bool
	slot    ring.Slot
	wLen    int
	// reader state
	reading bool
	rLeft   int
	rLen    int
}

// New returns a queue with capacity bytes of ring storage (length prefixes included) holding
// chunks of at most maxLen bytes.
func New(capacity, maxLen int) *Queue {
	q := &Queue{}
	q.Init(capacity, maxLen)
	return q
}

// Init allocates the ring storage.
func (q *Queue) Init(capacity, maxLen int) {
	if maxLen <= 0 || maxLen > MaxLength {
		maxLen = MaxLength
	}
	q.maxLen = maxLen
	q.ring.Init(capacity)
	q.writing, q.reading = false, false
}

// Capacity returns the ring size in bytes.
func (q *Queue) Capacity() int { return q.ring.Capacity() }

// MaxChunk returns the largest chunk payload accepted.
func (q *Queue) MaxChunk() int { return q.maxLen }

// HasContent reports whether at least one committed chunk is waiting.
func (q *Queue) HasContent() bool { return !q.ring.Empty() }

// Clear drops all chunks and any open transactions.
func (q *Queue) Clear() {
	q.ring.Clear()
	q.writing, q.valid, q.wLen = false, false, 0
	q.reading, q.rLeft, q.rLen = false, 0, 0
}

//===== writer side

// WriteStart opens a new chunk. If a chunk is already open it is aborted first. When not even the
// length byte fits the chunk is opened invalid: writes fail and WriteEnd drops it.
func (q *Queue) WriteStart() {
	if q.writing {
		q.ring.WriteAbort()
	}
	q.writing = true
	q.wLen = 0
	q.ring.WriteStart()
	q.slot, q.valid = q.ring.Reserve()
}

// WriteByte appends b to the open chunk, implementing io.ByteWriter.
func (q *Queue) WriteByte(b byte) error {
	switch {
	case !q.writing:
		return ErrNotOpen
	case !q.valid:
		return ErrFull
	case q.wLen == q.maxLen || !q.ring.Put(b):
		q.valid = false
		return ErrFull
	}
	q.wLen++
	q.ring.Patch(q.slot, byte(q.wLen))
	return nil
}

// Write appends p to the open chunk, implementing io.Writer. On error the chunk is invalid.
func (q *Queue) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := q.WriteByte(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Invalidate marks the open chunk so that WriteEnd drops it.
func (q *Queue) Invalidate() { q.valid = false }

// WriteLen returns the number of payload bytes in the open chunk.
func (q *Queue) WriteLen() int { return q.wLen }

// IsWriting reports whether a chunk is open for writing.
func (q *Queue) IsWriting() bool { return q.writing }

// WriteEnd commits the open chunk if every write succeeded, else drops it, and reports which.
func (q *Queue) WriteEnd() bool {
	if !q.writing {
		return false
	}
	q.writing = false
	if !q.valid {
		q.ring.WriteAbort()
		return false
	}
	q.ring.WriteEnd()
	return true
}

// WriteAbort drops the open chunk.
func (q *Queue) WriteAbort() {
	if !q.writing {
		return
	}
	q.writing = false
	q.ring.WriteAbort()
}

//===== reader side

// ReadStart opens the oldest committed chunk and reports whether there was one. A chunk that is
// already open stays open.
func (q *Queue) ReadStart() bool {
	if q.reading {
		return true
	}
	q.ring.ReadStart()
	l, ok := q.ring.Get()
	if !ok {
		q.ring.ReadAbort()
		return false
	}
	q.reading = true
	q.rLen, q.rLeft = int(l), int(l)
	return true
}

// ReadByte returns the next byte of the open chunk, implementing io.ByteReader. It returns
// io.EOF once the chunk's declared length has been read.
func (q *Queue) ReadByte() (byte, error) {
	if !q.reading || q.rLeft == 0 {
		return 0, io.EOF
	}
	b, ok := q.ring.Get()
	if !ok {
		// Cannot happen for a committed chunk unless the ring was cleared under us.
		q.rLeft = 0
		return 0, io.ErrUnexpectedEOF
	}
	q.rLeft--
	return b, nil
}

// Read implements io.Reader over the open chunk.
func (q *Queue) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		b, err := q.ReadByte()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}
		p[n] = b
		n++
	}
	return n, nil
}

// HasReadAvailable reports whether the open chunk has unread bytes.
func (q *Queue) HasReadAvailable() bool { return q.reading && q.rLeft > 0 }

// Remaining returns the number of unread bytes in the open chunk.
func (q *Queue) Remaining() int {
	if !q.reading {
		return 0
	}
	return q.rLeft
}

// ReadLen returns the declared length of the open chunk.
func (q *Queue) ReadLen() int { return q.rLen }

// IsReading reports whether a chunk is open for reading.
func (q *Queue) IsReading() bool { return q.reading }

// ReadEnd discards the unread rest of the open chunk and releases it.
func (q *Queue) ReadEnd() {
	if !q.reading {
		return
	}
	for ; q.rLeft > 0; q.rLeft-- {
		if _, ok := q.ring.Get(); !ok {
			break
		}
	}
	q.reading = false
	q.ring.ReadEnd()
}

// ReadAbort puts the open chunk back so the next ReadStart returns it again.
func (q *Queue) ReadAbort() {
	if !q.reading {
		return
	}
	q.reading = false
	q.rLeft = 0
	q.ring.ReadAbort()
}
