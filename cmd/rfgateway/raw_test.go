// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tve/rflink/pulse"
)

func TestLegacyConfig(t *testing.T) {
	tests := map[string]struct {
		in   LegacyTx
		want pulse.SerialConfig
	}{
		"8N1":      {LegacyTx{BitTicks: 20}, pulse.SerialConfig{BitTicks: 20}},
		"8E2 msb":  {LegacyTx{BitTicks: 20, MSBFirst: true, Parity: "even", StopBits: 2}, pulse.SerialConfig{BitTicks: 20, Order: pulse.MSBFirst, Parity: pulse.ParityEven, StopBits: 2}},
		"odd inv":  {LegacyTx{BitTicks: 7, Parity: "odd", Inverted: true}, pulse.SerialConfig{BitTicks: 7, Parity: pulse.ParityOdd, Inverted: true}},
		"explicit": {LegacyTx{BitTicks: 7, Parity: "none"}, pulse.SerialConfig{BitTicks: 7}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := tc.in.config()
			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg)
		})
	}

	for _, bad := range []LegacyTx{{}, {BitTicks: 5, StopBits: 3}, {BitTicks: 5, Parity: "mark"}} {
		_, err := bad.config()
		assert.Error(t, err, "%+v", bad)
	}
}
