// Copyright 2016 by Thorsten von Eicken

package irq

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	d := NewDispatcher(nil)
	require.NoError(t, d.Register(1, func() {}))
	assert.ErrorIs(t, d.Register(1, func() {}), ErrBusy)
	assert.Error(t, d.Register(MaxVectors, func() {}))
	d.Unregister(1)
	assert.NoError(t, d.Register(1, func() {}))
}

func TestPollCoalescesAndPrioritizes(t *testing.T) {
	d := NewDispatcher(nil)
	var order []Vector
	require.NoError(t, d.Register(0, func() { order = append(order, 0) }))
	require.NoError(t, d.Register(3, func() { order = append(order, 3) }))

	d.Raise(3)
	d.Raise(3)
	d.Raise(0)
	for d.Poll() {
	}
	assert.Equal(t, []Vector{0, 3}, order)
	assert.Equal(t, uint32(1), d.Count(3))
	assert.False(t, d.Poll())
}

func TestSpuriousVector(t *testing.T) {
	d := NewDispatcher(nil)
	d.Raise(5)
	assert.False(t, d.Poll())
}

func TestRunDispatches(t *testing.T) {
	d := NewDispatcher(nil)
	var n atomic.Int32
	done := make(chan struct{}, 10)
	require.NoError(t, d.Register(2, func() {
		n.Add(1)
		done <- struct{}{}
	}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Raise(2)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}
	assert.Equal(t, int32(1), n.Load())
}
