// Copyright 2016 by Thorsten von Eicken

package rfm12

// RFM12 commands are 16-bit words shifted in MSB first. Every command also shifts the status word
// out, so the status read is simply the all-zero command.
const (
	cmdStatus   = 0x0000
	cmdConfig   = 0x8007 // | band<<4, plus elTxReg and efFifo for the packet engine
	elTxReg     = 0x0080 // enable the TX data register
	efFifo      = 0x0040 // enable the RX FIFO
	cmdRxOn     = 0x82DD // receiver, synthesizer, oscillator, no clock out
	cmdTxOn     = 0x823D // transmitter, synthesizer, oscillator, no clock out
	cmdIdle     = 0x820D // oscillator only
	cmdFreq     = 0xA000 // | 12-bit frequency value
	cmdRate     = 0xC600 // | rate divider
	cmdRxCtl    = 0x94A2 // VDI fast, 134kHz bandwidth, max LNA gain, -91dBm RSSI
	cmdFilter   = 0xC2AC // AL, !ml, DIG, DQD4
	cmdFifoSync = 0xCA83 // FIFO8, 2-byte sync, !ff, DR
	cmdFifoOff  = 0xCA81 // same with the sync recognition reset
	cmdSyncLow  = 0xCE00 // | second sync byte, the group id
	cmdAFC      = 0xC483 // @PWR, no range limit, !st, !fi, OE, EN
	cmdTxCtl    = 0x9850 // !mp, 90kHz deviation, max output
	cmdPLL      = 0xCC77 // OB1, OB0, !lpx, !ddy, DDIT, BW0
	cmdWakeUp   = 0xE000 // not used
	cmdDutyOff  = 0xC800 // not used
	cmdBattery  = 0xC049 // 1.66MHz clock, 3.1V threshold
	cmdTxByte   = 0xB800 // | byte to send
	cmdFifoRead = 0xB000 // byte received is in the low bits of the reply
)

// Status word bits.
const (
	statusReady   = 0x8000 // RGIT or FFIT: TX register wants a byte or the FIFO has one
	statusPOR     = 0x4000 // power-on reset
	statusOverrun = 0x2000 // RGUR or FFOV: TX register underrun or FIFO overflow
)

// Band selects the chip's frequency band.
type Band byte

const (
	Band433 Band = 1
	Band868 Band = 2
	Band915 Band = 3
)

func (b Band) String() string {
	switch b {
	case Band433:
		return "433MHz"
	case Band868:
		return "868MHz"
	case Band915:
		return "915MHz"
	}
	return "invalid band"
}

// BandFor returns the band for a frequency given in MHz.
func BandFor(mhz int) (Band, bool) {
	switch mhz {
	case 433:
		return Band433, true
	case 868:
		return Band868, true
	case 915:
		return Band915, true
	}
	return 0, false
}

// nativeConfig enables the packet engine: TX register and RX FIFO.
func nativeConfig(b Band) uint16 { return cmdConfig | uint16(b)<<4 | elTxReg | efFifo }

// legacyConfig leaves the TX register and FIFO off so the data pin keys the transmitter.
func legacyConfig(b Band) uint16 { return cmdConfig | uint16(b)<<4 }

// initSequence returns the configuration commands, in the order they are sent after a reset.
func initSequence(band Band, freq uint16, rate byte, group byte) [14]uint16 {
	return [14]uint16{
		cmdStatus,
		nativeConfig(band),
		cmdFreq | freq&0x0FFF,
		cmdRate | uint16(rate),
		cmdRxCtl,
		cmdFilter,
		cmdFifoSync,
		cmdSyncLow | uint16(group),
		cmdAFC,
		cmdTxCtl,
		cmdPLL,
		cmdWakeUp,
		cmdDutyOff,
		cmdBattery,
	}
}
