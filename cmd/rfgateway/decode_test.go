// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tve/rflink/crc16"
)

func TestStreamDecoder(t *testing.T) {
	tests := map[string]struct {
		stream []byte
		want   string
		stats  decodeStats
	}{
		"empty frame": {
			[]byte{0xAA, 0xAA, 0xAA, 0x2D, 0x05, 0x00, 0x00, 0x61, 0xC1, 0xAA, 0xAA},
			"data from node 0 len=0\n",
			decodeStats{frames: 1},
		},
		"eight bytes": {
			[]byte{0x12, 0xAA, 0xAA, 0xAA, 0x2D, 0x05, 0x1E, 0x08, 0x52, 0x31, 0x20, 0x20, 0x01,
				0x3A, 0xFB, 0x00, 0x50, 0xC8, 0xAA, 0xAA},
			"data from node 30 len=8 52 31 20 20 01 3A FB 00\n",
			decodeStats{frames: 1},
		},
		"corrupt": {
			[]byte{0xAA, 0xAA, 0x2D, 0x05, 0x00, 0x00, 0x61, 0xC2, 0xAA},
			"[CRC ERROR]\n",
			decodeStats{corrupt: 1},
		},
		"other group": {
			[]byte{0xAA, 0xAA, 0x2D, 0x06, 0x00, 0x00, 0x61, 0xC1, 0xAA},
			"",
			decodeStats{},
		},
		"sync without preamble": {
			[]byte{0x00, 0x2D, 0x05, 0x00, 0x00, 0x61, 0xC1},
			"",
			decodeStats{},
		},
		"back to back": {
			[]byte{0xAA, 0x2D, 0x05, 0x00, 0x00, 0x61, 0xC1, 0xAA,
				0xAA, 0x2D, 0x05, 0x00, 0x00, 0x61, 0xC1, 0xAA},
			"data from node 0 len=0\ndata from node 0 len=0\n",
			decodeStats{frames: 2},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			st, err := newStreamDecoder(5).decode(bytes.NewReader(tc.stream), &out)
			require.NoError(t, err)
			assert.Equal(t, tc.stats, st)
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestStreamDecoderFormat(t *testing.T) {
	// a gpsNav packet that does not carry all eight fields
	stream := []byte{0xAA, 0x2D, 0x05, 0x00, 0x03, 0x0A, 0x82, 0x84}
	rx := newStreamDecoder(5)
	crc := crc16.Checksum(stream[2:])
	stream = append(stream, byte(crc), byte(crc>>8))
	var out bytes.Buffer
	st, err := rx.decode(bytes.NewReader(stream), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, st.frames)
	assert.Equal(t, "data from node 0 len=3 0A 82 84 gpsNav: 2 values, want 8\n", out.String())
}
