// Copyright 2016 by Thorsten von Eicken

package pulse

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	now     uint16
	compare uint16
	enabled bool
	targets []uint16
}

func (t *fakeTimer) Now() uint16 { return t.now }
func (t *fakeTimer) SetCompare(target uint16) {
	t.compare = target
	t.targets = append(t.targets, target)
}
func (t *fakeTimer) EnableCompare(on bool) { t.enabled = on }

type fakePin struct{ levels []int }

func (p *fakePin) Out(level int) { p.levels = append(p.levels, level) }

// levels renders the pulses of a waveform as a string of H and L, one per bit.
func levels(cfg SerialConfig, data []byte) string {
	var e SerialEncoder
	e.Reset(cfg, bytes.NewReader(data))
	s := ""
	for p := e.Next(); !p.End(); p = e.Next() {
		if p.High {
			s += "H"
		} else {
			s += "L"
		}
	}
	return s
}

func TestSerialEncoder(t *testing.T) {
	tests := map[string]struct {
		cfg  SerialConfig
		data []byte
		want string
	}{
		"8N1 lsb":    {SerialConfig{BitTicks: 10}, []byte{0x55}, "LHLHLHLHLH"},
		"8N1 msb":    {SerialConfig{BitTicks: 10, Order: MSBFirst}, []byte{0x0F}, "LLLLLHHHHH"},
		"8E1":        {SerialConfig{BitTicks: 10, Parity: ParityEven}, []byte{0x01}, "LHLLLLLLLHH"},
		"8O1":        {SerialConfig{BitTicks: 10, Parity: ParityOdd}, []byte{0x01}, "LHLLLLLLLLH"},
		"8N2":        {SerialConfig{BitTicks: 10, StopBits: 2}, []byte{0xFF}, "LHHHHHHHHHH"},
		"inverted":   {SerialConfig{BitTicks: 10, Inverted: true}, []byte{0x00}, "HHHHHHHHHL"},
		"two bytes":  {SerialConfig{BitTicks: 10}, []byte{0x00, 0xFF}, "LLLLLLLLLHLHHHHHHHHH"},
		"empty":      {SerialConfig{BitTicks: 10}, []byte{}, ""},
		"zero ticks": {SerialConfig{}, []byte{0x55}, ""},
	}
	for n, tc := range tests {
		assert.Equal(t, tc.want, levels(tc.cfg, tc.data), n)
	}
}

func TestConfigCodec(t *testing.T) {
	cfgs := []SerialConfig{
		{BitTicks: 1, StopBits: 1},
		{BitTicks: 0x1234, Order: MSBFirst, Parity: ParityOdd, StopBits: 2, Inverted: true},
		{BitTicks: 500, Parity: ParityEven, StopBits: 1},
	}
	for _, c := range cfgs {
		var buf bytes.Buffer
		require.NoError(t, c.Encode(&buf))
		assert.Len(t, buf.Bytes(), ConfigLen)
		got, err := DecodeConfig(&buf)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	var buf bytes.Buffer
	require.NoError(t, SerialConfig{BitTicks: 0x1234, Parity: ParityEven}.Encode(&buf))
	assert.Equal(t, []byte{0x34, 0x12, 0x02}, buf.Bytes())
}

func TestConfigDecodeErrors(t *testing.T) {
	tests := map[string]struct {
		in  []byte
		err error
	}{
		"empty":     {[]byte{}, io.EOF},
		"short":     {[]byte{1, 0}, io.ErrUnexpectedEOF},
		"zero bit":  {[]byte{0, 0, 0}, ErrBadConfig},
		"bad flags": {[]byte{1, 0, 0x80}, ErrBadConfig},
		"parity 3":  {[]byte{1, 0, 0x06}, ErrBadConfig},
	}
	for n, tc := range tests {
		_, err := DecodeConfig(bytes.NewReader(tc.in))
		assert.Equal(t, tc.err, err, n)
	}
}

func TestEngineWaveform(t *testing.T) {
	tm := &fakeTimer{now: 0xFFF0}
	pin := &fakePin{}
	e := NewEngine(tm, pin)
	calls := 0
	cfg := SerialConfig{BitTicks: 0x10}
	require.True(t, e.SendFromSource(cfg, bytes.NewReader([]byte{0x55}), func() { calls++ }))
	assert.True(t, e.Active())
	assert.True(t, tm.enabled)
	// re-arming while active is a no-op
	assert.True(t, e.SendFromSource(cfg, bytes.NewReader([]byte{0xFF}), nil))

	for i := 0; i < 20 && e.Active(); i++ {
		e.OnCompare()
	}
	assert.False(t, e.Active())
	assert.False(t, tm.enabled)
	assert.Equal(t, 1, calls)
	// ten bits then back to idle mark
	assert.Equal(t, []int{0, 1, 0, 1, 0, 1, 0, 1, 0, 1, 1}, pin.levels)
	assert.Equal(t, uint32(10), e.Pulses())
	require.Len(t, tm.targets, 10)
	// compare targets advance by one bit each and wrap around
	assert.Equal(t, uint16(0x0000), tm.targets[0])
	assert.Equal(t, uint16(0x0090), tm.targets[9])

	// spurious compare after the end does nothing
	e.OnCompare()
	assert.Equal(t, 1, calls)
}

func TestEngineEmptySource(t *testing.T) {
	tm := &fakeTimer{}
	pin := &fakePin{}
	e := NewEngine(tm, pin)
	called := false
	assert.False(t, e.SendFromSource(SerialConfig{BitTicks: 5, Inverted: true},
		bytes.NewReader(nil), func() { called = true }))
	assert.False(t, e.Active())
	assert.False(t, tm.enabled)
	assert.False(t, called)
	assert.Equal(t, []int{0}, pin.levels)
}

func TestEngineAbort(t *testing.T) {
	tm := &fakeTimer{}
	pin := &fakePin{}
	e := NewEngine(tm, pin)
	called := false
	require.True(t, e.SendFromSource(SerialConfig{BitTicks: 5}, bytes.NewReader([]byte{1, 2}),
		func() { called = true }))
	e.OnCompare()
	assert.True(t, e.Abort())
	assert.False(t, e.Active())
	assert.False(t, tm.enabled)
	assert.Equal(t, 1, pin.levels[len(pin.levels)-1])
	e.OnCompare()
	assert.False(t, called)
	assert.False(t, e.Abort())
}
