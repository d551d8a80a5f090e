// Copyright 2016 by Thorsten von Eicken

package varint

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var varinttests = map[string]struct {
	dec []int
	enc []byte
}{
	"empty": {[]int{}, []byte{}},
	"small": {[]int{0, 1, 2, -1, -2}, []byte{0x80, 0x82, 0x84, 0x81, 0x83}},
	"positive": {
		[]int{63, 64, 127,
			(12 << 6) + 34, (12 << 13) + 34, 0x7f << 56},
		[]byte{0xfe, 0x1, 0x80, 1, 0xfe,
			12, 128 + 68, 12, 0, 0x80 + 68, 1, 0x7e, 0, 0, 0, 0, 0, 0, 0, 0x80}},
	"negative": {
		[]int{-64, -65, -127, -128,
			-(12 << 6) + 34, -(12 << 13) + 34, -9223372036854775808},
		[]byte{0xff, 0x1, 0x81, 1, 0xfd, 1, 0xff,
			11, 187, 11, 0x7f, 187, 1, 0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0xff}},
}

func TestEncode(t *testing.T) {
	for n, tc := range varinttests {
		assert.Equal(t, tc.enc, Encode(tc.dec), n)
	}
}

func TestDecode(t *testing.T) {
	for n, tc := range varinttests {
		assert.Equal(t, tc.dec, Decode(tc.enc), n)
	}
}

func TestStream(t *testing.T) {
	for n, tc := range varinttests {
		var buf bytes.Buffer
		for _, v := range tc.dec {
			require.NoError(t, Write(&buf, v), n)
		}
		assert.Equal(t, tc.enc, append([]byte{}, buf.Bytes()...), n)

		r := bytes.NewReader(tc.enc)
		for _, v := range tc.dec {
			got, err := Read(r)
			require.NoError(t, err, n)
			assert.Equal(t, v, got, n)
		}
		_, err := Read(r)
		assert.Equal(t, io.EOF, err, n)
	}
}

func TestReadTruncated(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{0x01, 0x7f}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
	assert.Equal(t, []int{1}, Decode([]byte{0x82, 0x01}))
}

func TestReadOverflow(t *testing.T) {
	_, err := Read(bytes.NewReader(bytes.Repeat([]byte{0x01}, MaxLen+1)))
	assert.Equal(t, ErrOverflow, err)
}

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Int(-3).Encode(&buf))
	require.NoError(t, Ints{1, 300, -70000}.Encode(&buf))
	r := bytes.NewReader(buf.Bytes())
	var i Int
	var rest Ints
	require.NoError(t, i.Decode(r))
	require.NoError(t, rest.Decode(r))
	assert.Equal(t, Int(-3), i)
	assert.Equal(t, Ints{1, 300, -70000}, rest)
}
