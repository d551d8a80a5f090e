// Copyright 2016 by Thorsten von Eicken

package ring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(r *Ring) []byte {
	var out []byte
	for {
		b, ok := r.Get()
		if !ok {
			return out
		}
		out = append(out, b)
	}
}

func TestEmptyAndFull(t *testing.T) {
	r := New(4)
	assert.Equal(t, 4, r.Capacity())
	assert.Equal(t, 0, r.Size())
	assert.Equal(t, 4, r.Space())
	assert.True(t, r.Empty())
	_, ok := r.Get()
	assert.False(t, ok)

	for i := byte(1); i <= 4; i++ {
		require.True(t, r.Put(i))
	}
	assert.False(t, r.Put(5))
	assert.Equal(t, 0, r.Space())
	assert.Equal(t, []byte{1, 2, 3, 4}, drain(r))
}

func TestWrapAround(t *testing.T) {
	r := New(3)
	for round := 0; round < 10; round++ {
		require.True(t, r.Put(byte(round)))
		require.True(t, r.Put(byte(round+100)))
		assert.Equal(t, []byte{byte(round), byte(round + 100)}, drain(r))
	}
}

func TestWriteCommitAndAbort(t *testing.T) {
	r := New(8)
	r.WriteStart()
	r.Put(1)
	r.Put(2)
	assert.Equal(t, 0, r.Size(), "uncommitted bytes must not be visible")
	r.WriteEnd()
	assert.Equal(t, 2, r.Size())

	r.WriteStart()
	r.Put(3)
	r.Put(4)
	r.WriteAbort()
	assert.False(t, r.IsWriting())
	assert.Equal(t, []byte{1, 2}, drain(r))
	assert.Equal(t, 8, r.Space())
}

func TestNestedWriteExtendsTransaction(t *testing.T) {
	r := New(8)
	r.WriteStart()
	r.Put(1)
	r.WriteStart()
	r.Put(2)
	r.WriteEnd()
	assert.Equal(t, 0, r.Size(), "inner end must not commit")
	assert.True(t, r.IsWriting())
	r.WriteEnd()
	assert.Equal(t, 2, r.Size())

	r.WriteStart()
	r.Put(3)
	r.WriteStart()
	r.Put(4)
	r.WriteAbort()
	assert.False(t, r.IsWriting(), "abort closes the whole transaction")
	assert.Equal(t, []byte{1, 2}, drain(r))
}

func TestReadAbortRestores(t *testing.T) {
	r := New(8)
	for _, b := range []byte{1, 2, 3} {
		r.Put(b)
	}
	r.ReadStart()
	b, _ := r.Get()
	assert.Equal(t, byte(1), b)
	b, _ = r.Get()
	assert.Equal(t, byte(2), b)
	r.ReadAbort()
	assert.Equal(t, []byte{1, 2, 3}, drain(r))
}

func TestWriterCannotOverwriteOpenRead(t *testing.T) {
	r := New(4)
	for i := byte(1); i <= 4; i++ {
		r.Put(i)
	}
	r.ReadStart()
	r.Get()
	r.Get()
	assert.Equal(t, 0, r.Space(), "consumed bytes are still owned by the open read")
	assert.False(t, r.Put(9))
	r.ReadEnd()
	assert.Equal(t, 2, r.Space())
	assert.True(t, r.Put(5))
	assert.Equal(t, []byte{3, 4, 5}, drain(r))
}

func TestReaderCannotPassOpenWrite(t *testing.T) {
	r := New(8)
	r.Put(1)
	r.WriteStart()
	r.Put(2)
	r.ReadStart()
	b, ok := r.Get()
	assert.True(t, ok)
	assert.Equal(t, byte(1), b)
	_, ok = r.Get()
	assert.False(t, ok)
	r.ReadEnd()
	r.WriteEnd()
	assert.Equal(t, []byte{2}, drain(r))
}

func TestReserveAndPatch(t *testing.T) {
	r := New(8)
	_, ok := r.Reserve()
	assert.False(t, ok, "reserve needs an open write")

	r.WriteStart()
	s, ok := r.Reserve()
	require.True(t, ok)
	r.Put(7)
	r.Put(8)
	r.Patch(s, 2)
	r.WriteEnd()
	assert.Equal(t, []byte{2, 7, 8}, drain(r))
}

func TestPeekAndClear(t *testing.T) {
	r := New(4)
	_, ok := r.Peek()
	assert.False(t, ok)
	r.Put(42)
	b, ok := r.Peek()
	assert.True(t, ok)
	assert.Equal(t, byte(42), b)
	assert.Equal(t, 1, r.Size())
	r.WriteStart()
	r.ReadStart()
	r.Clear()
	assert.False(t, r.IsWriting())
	assert.False(t, r.IsReading())
	assert.Equal(t, 0, r.Size())
	assert.Equal(t, 4, r.Space())
}

// TestRandomTransactions checks that whatever mix of committed and aborted writes happens, the
// reader sees exactly the committed bytes in order.
func TestRandomTransactions(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	r := New(17)
	var want, got []byte
	for i := 0; i < 2000; i++ {
		r.WriteStart()
		var pending []byte
		n := rnd.Intn(6)
		for j := 0; j < n; j++ {
			b := byte(rnd.Intn(256))
			if r.Put(b) {
				pending = append(pending, b)
			}
		}
		if rnd.Intn(3) == 0 {
			r.WriteAbort()
		} else {
			r.WriteEnd()
			want = append(want, pending...)
		}
		if rnd.Intn(2) == 0 {
			r.ReadStart()
			var read []byte
			for k := rnd.Intn(8); k > 0; k-- {
				if b, ok := r.Get(); ok {
					read = append(read, b)
				}
			}
			if rnd.Intn(4) == 0 {
				r.ReadAbort()
			} else {
				r.ReadEnd()
				got = append(got, read...)
			}
		}
	}
	got = append(got, drain(r)...)
	assert.Equal(t, want, got)
}
