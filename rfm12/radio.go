// Copyright 2016 by Thorsten von Eicken

// Package rfm12 drives a HopeRF RFM12B radio connected to an SPI bus using the JeeLabs RF12 packet
// format.
//
// The chip has no packet buffer: while a frame is on the air it raises its nIRQ line for every
// byte, and the driver's Interrupt handler exchanges exactly one byte with the chip per call. The
// frame bytes come from a framer.Tx queue on transmit and go into a framer.Rx queue on receive,
// so application code only ever deals with whole chunks and never with the chip.
//
// The driver cycles through Idle, then Listening or one of the sending modes, and back to Idle.
// Whenever it becomes Idle it looks at the transmit queue: a queued frame is sent right away,
// otherwise the receiver is turned on. Power-on resets, FIFO overruns and bus errors abort the
// frame in flight and restart that cycle. Nothing is fatal and nothing is retried.
//
// Besides native frames the driver can send legacy on/off keyed waveforms. For those the packet
// engine is switched off and a pulse.Engine keys the transmitter through the chip's data pin.
//
// Interrupt and the pulse engine's compare handler must run one at a time, typically bound to an
// irq.Dispatcher with Attach. The application methods may be called from one other goroutine.
package rfm12

import (
	"errors"
	"fmt"
	"time"

	"github.com/tve/rflink"
	"github.com/tve/rflink/critical"
	"github.com/tve/rflink/field"
	"github.com/tve/rflink/framer"
	"github.com/tve/rflink/irq"
	"github.com/tve/rflink/pulse"
)

// Mode is the driver's state.
type Mode byte

const (
	Idle Mode = iota
	Listening
	Receiving
	SendingNative
	SendingLegacy
)

var modeNames = [...]string{"idle", "listening", "receiving", "sending-native", "sending-legacy"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// RadioOpts contains options used when initializing a Radio.
type RadioOpts struct {
	Group      byte            // network group, sent as second sync byte, default 212
	Band       Band            // frequency band, default Band868
	Freq       uint16          // 12-bit frequency value within the band, default 1600
	Rate       byte            // bit rate divider, default 6 for 49.2kbps
	TxCapacity int             // bytes of transmit queue, default 128
	RxCapacity int             // bytes of receive queue, default 128
	RxNotify   chan<- struct{} // if set, signalled for each queued frame without blocking
	Logger     LogPrintf       // function to use for logging
}

// Stats counts what happened since the radio was created.
type Stats struct {
	Interrupts uint32 // handler invocations
	TxNative   uint32 // native frames sent
	TxLegacy   uint32 // legacy waveforms sent
	TxDropped  uint32 // transmit chunks discarded
	RxFrames   uint32 // frames queued
	RxCorrupt  uint32 // frames dropped on CRC mismatch
	RxDropped  uint32 // good frames dropped on a full queue
	Resets     uint32 // power-on resets seen
	Overruns   uint32 // FIFO overflows and TX underruns
	BusErrors  uint32 // failed bus transfers including arbitration loss
	ArbLost    uint32 // arbitration losses
}

// RxPacket is a received frame.
type RxPacket struct {
	Header  Header
	Payload []byte
}

// Radio is an RFM12B driver instance.
type Radio struct {
	cs     critical.Section // guards everything below that the handlers touch
	spi    rflink.SPI
	intr   rflink.GPIO // nIRQ, active low
	data   rflink.GPIO // data pin keyed by the pulse engine, may be nil
	pulse  *pulse.Engine
	tx     framer.Tx
	rx     framer.Rx
	mode   Mode
	band   Band
	freq   uint16
	rate   byte
	group  byte
	busErr error // first bus error of the current handler call
	wBuf   [2]byte
	rBuf   [2]byte
	stats  Stats
	trace  trace
	notify chan<- struct{}
	log    LogPrintf
}

// New initializes an RFM12B radio given its SPI bus and nIRQ pin, and places it in receive mode.
// Legacy transmissions also need the chip's data pin and a compare timer, both may be nil if they
// are not used.
func New(spi rflink.SPI, intr, data rflink.GPIO, timer rflink.Timer, opts RadioOpts) (*Radio, error) {
	if spi == nil || intr == nil {
		return nil, errors.New("rfm12: spi and interrupt pin are required")
	}
	r := &Radio{
		spi: spi, intr: intr, data: data,
		group:  opts.Group,
		band:   opts.Band,
		freq:   opts.Freq,
		rate:   opts.Rate,
		notify: opts.RxNotify,
	}
	r.SetLogger(opts.Logger)
	if r.group == 0 {
		r.group = DefaultGroup
	}
	if r.band == 0 {
		r.band = Band868
	}
	if r.band > Band915 {
		return nil, fmt.Errorf("rfm12: invalid band %d", r.band)
	}
	if r.freq == 0 {
		r.freq = 1600
	}
	if r.freq < 96 || r.freq > 3903 {
		return nil, fmt.Errorf("rfm12: frequency value %d out of range 96..3903", r.freq)
	}
	if r.rate == 0 {
		r.rate = 6
	}
	txCap, rxCap := opts.TxCapacity, opts.RxCapacity
	if txCap <= 0 {
		txCap = 128
	}
	if rxCap <= 0 {
		rxCap = 128
	}
	r.tx.Init(r.group, txCap)
	r.rx.Init(r.group, rxCap)
	if data != nil && timer != nil {
		r.pulse = pulse.NewEngine(timer, data)
	}

	if err := r.configure(); err != nil {
		return nil, err
	}
	if data != nil {
		if err := data.In(rflink.GpioNoEdge); err != nil {
			return nil, fmt.Errorf("rfm12: error initializing data pin: %w", err)
		}
	}
	if err := intr.In(rflink.GpioFallingEdge); err != nil {
		return nil, fmt.Errorf("rfm12: error initializing interrupt pin: %w", err)
	}
	r.log("group %d, %s, freq %d, rate %d", r.group, r.band, r.freq, r.rate)

	defer r.cs.Enter().Exit()
	if err := r.startNext(); err != nil {
		return nil, fmt.Errorf("rfm12: cannot start radio: %w", err)
	}
	return r, nil
}

// SetLogger sets a logging function, nil may be used to disable logging, which is the default.
func (r *Radio) SetLogger(l LogPrintf) {
	if l != nil {
		r.log = func(format string, v ...interface{}) { l("rfm12: "+format, v...) }
	} else {
		r.log = func(format string, v ...interface{}) {}
	}
}

// Attach binds the radio's handlers to a dispatcher: Interrupt to radioVec and, if legacy sending
// is configured, the pulse engine to timerVec.
func (r *Radio) Attach(d *irq.Dispatcher, radioVec, timerVec irq.Vector) error {
	if err := d.Register(radioVec, r.Interrupt); err != nil {
		return fmt.Errorf("rfm12: cannot bind radio vector: %w", err)
	}
	if r.pulse == nil {
		return nil
	}
	if err := d.Register(timerVec, r.pulse.OnCompare); err != nil {
		d.Unregister(radioVec)
		return fmt.Errorf("rfm12: cannot bind timer vector: %w", err)
	}
	return nil
}

//===== application side

// TransmitNative queues a native frame with the given header and fields and reports whether it
// fit. A frame that does not fit is not queued at all.
func (r *Radio) TransmitNative(header byte, fields ...field.Encoder) bool {
	if !r.tx.BeginNative(header) {
		r.tx.Abort()
		return false
	}
	return r.commit(field.Write(&r.tx, fields...))
}

// TransmitLegacy queues a legacy waveform of the given fields sent with cfg and reports whether
// it fit. It fails if the radio was created without data pin or timer.
func (r *Radio) TransmitLegacy(cfg pulse.SerialConfig, fields ...field.Encoder) bool {
	if r.pulse == nil || cfg.BitTicks == 0 {
		return false
	}
	if !r.tx.BeginLegacy() {
		r.tx.Abort()
		return false
	}
	if err := cfg.Encode(&r.tx); err != nil {
		return r.commit(err)
	}
	return r.commit(field.Write(&r.tx, fields...))
}

func (r *Radio) commit(err error) bool {
	if err != nil {
		r.tx.Abort()
		return false
	}
	if !r.tx.End() {
		return false
	}
	defer r.cs.Enter().Exit()
	if r.mode == Listening {
		r.setMode(Idle, "tx queued")
		r.startNext()
	}
	return true
}

// SendAck queues the acknowledgement for a frame that carried h.
func (r *Radio) SendAck(h Header) bool {
	return r.TransmitNative(byte(h.AckReply()))
}

// HasContent reports whether a received frame is waiting.
func (r *Radio) HasContent() bool { return r.rx.HasContent() }

// BeginReceive opens the oldest received frame and returns its header.
func (r *Radio) BeginReceive() (Header, bool) {
	if !r.rx.ReadStart() {
		return 0, false
	}
	h, err := r.rx.ReadByte()
	if err != nil {
		r.rx.ReadEnd()
		return 0, false
	}
	return Header(h), true
}

// Read decodes fields from the data of the frame opened by BeginReceive.
func (r *Radio) Read(fields ...field.Decoder) field.Status {
	if !r.rx.Reading() {
		return field.Invalid
	}
	return field.Read(&r.rx, fields...)
}

// EndReceive releases the open frame, discarding anything not read.
func (r *Radio) EndReceive() { r.rx.ReadEnd() }

// ReceivePacket returns the oldest received frame as a whole.
func (r *Radio) ReceivePacket() (*RxPacket, bool) {
	h, ok := r.BeginReceive()
	if !ok {
		return nil, false
	}
	pkt := &RxPacket{Header: h, Payload: make([]byte, 0, r.rx.Remaining())}
	r.Read(field.Rest(&pkt.Payload))
	r.EndReceive()
	return pkt, true
}

// Mode returns the current mode.
func (r *Radio) Mode() Mode {
	defer r.cs.Enter().Exit()
	return r.mode
}

// IsIdle reports whether the radio has nothing to send and is not in the middle of a frame, which
// is when the node may go to sleep.
func (r *Radio) IsIdle() bool {
	defer r.cs.Enter().Exit()
	return (r.mode == Idle || r.mode == Listening) && !r.tx.HasContent()
}

// Flush waits until everything queued has been sent, giving up after guard. It reports whether
// the queue drained.
func (r *Radio) Flush(guard time.Duration) bool {
	deadline := time.Now().Add(guard)
	for !r.IsIdle() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// Stats returns a copy of the counters.
func (r *Radio) Stats() Stats {
	defer r.cs.Enter().Exit()
	return r.stats
}

// Trace returns the most recent mode transitions, oldest first.
func (r *Radio) Trace() []Transition {
	defer r.cs.Enter().Exit()
	return r.trace.entries()
}

//===== interrupt side

// Interrupt is the nIRQ handler: it reads the status word and moves at most one byte.
func (r *Radio) Interrupt() {
	defer r.cs.Enter().Exit()
	r.stats.Interrupts++
	r.busErr = nil
	status := r.xfer(cmdStatus)
	switch {
	case r.busErr != nil:
	case status&statusPOR != 0:
		r.stats.Resets++
		r.log("power-on reset in %s", r.mode)
		r.abort("power-on reset")
		r.configure()
	case status&statusOverrun != 0:
		r.stats.Overruns++
		r.abort("overrun")
	case status&statusReady != 0:
		r.ready()
	}
	r.startNext()
}

// ready moves one byte between the chip and the framer.
func (r *Radio) ready() {
	switch r.mode {
	case SendingNative:
		if b, ok := r.tx.NextByte(); ok {
			r.xfer(cmdTxByte | uint16(b))
			return
		}
		r.xfer(cmdTxByte | framer.Postfix)
		r.stats.TxNative++
		r.xfer(cmdIdle)
		r.setMode(Idle, "sent")
	case Listening, Receiving:
		b := byte(r.xfer(cmdFifoRead))
		if r.busErr != nil {
			return
		}
		switch res := r.rx.Append(b); res {
		case framer.Ignored:
			r.rearm()
		case framer.Started:
			r.setMode(Receiving, "group match")
		case framer.Pending:
		default:
			r.xfer(cmdIdle)
			r.received(res)
		}
	}
}

func (r *Radio) received(res framer.Result) {
	switch res {
	case framer.Complete:
		r.stats.RxFrames++
		if r.notify != nil {
			select {
			case r.notify <- struct{}{}:
			default:
			}
		}
	case framer.Corrupt:
		r.stats.RxCorrupt++
	case framer.Dropped:
		r.stats.RxDropped++
	}
	r.setMode(Idle, res.String())
}

// abort discards the frame in flight and leaves the radio Idle.
func (r *Radio) abort(reason string) {
	switch r.mode {
	case SendingNative:
		r.tx.Drop()
		r.stats.TxDropped++
	case SendingLegacy:
		r.pulse.Abort()
		r.tx.Drop()
		r.stats.TxDropped++
		r.restoreNative()
	case Listening, Receiving:
		r.rx.Abort()
	}
	r.xfer(cmdIdle)
	r.setMode(Idle, reason)
}

// maxStarts bounds how often startNext retries after the bus fails.
const maxStarts = 3

// startNext handles a pending bus error and, while the radio is Idle, starts sending or
// listening. A bus error while starting drops the frame being started and tries again, up to
// maxStarts times. It returns the last bus error, the radio is then left Idle.
func (r *Radio) startNext() error {
	err := r.busFault()
	for i := 0; i < maxStarts && r.mode == Idle; i++ {
		r.sendOrListen()
		err = r.busFault()
	}
	return err
}

// busFault counts and clears the pending bus error, aborting whatever was in progress.
func (r *Radio) busFault() error {
	err := r.busErr
	if err == nil {
		return nil
	}
	r.busErr = nil
	r.stats.BusErrors++
	if errors.Is(err, rflink.ErrArbitrationLost) {
		r.stats.ArbLost++
	}
	r.log("bus error in %s: %s", r.mode, err)
	r.abort("bus error")
	r.busErr = nil
	return err
}

// sendOrListen starts sending the next queued chunk or, if there is none, turns on the receiver.
func (r *Radio) sendOrListen() {
	for r.mode == Idle {
		kind, ok := r.tx.Next()
		switch {
		case !ok:
			r.rearm()
			r.xfer(cmdRxOn)
			r.setMode(Listening, "queue empty")
		case kind == framer.KindNative:
			r.xfer(cmdTxOn)
			r.setMode(SendingNative, "tx chunk")
		case kind == framer.KindLegacy:
			r.startLegacy()
		}
	}
}

// startLegacy turns the packet engine off and hands the open chunk to the pulse engine.
func (r *Radio) startLegacy() {
	cfg, err := pulse.DecodeConfig(r.tx.Source())
	if err == nil && r.pulse == nil {
		err = errors.New("no pulse engine")
	}
	if err != nil {
		r.log("dropping legacy chunk: %v", err)
		r.tx.Drop()
		r.stats.TxDropped++
		return
	}
	r.setMode(SendingLegacy, "legacy chunk")
	r.xfer(cmdIdle)
	r.xfer(legacyConfig(r.band))
	idle := rflink.GpioLow
	if cfg.IdleHigh() {
		idle = rflink.GpioHigh
	}
	r.data.Out(idle)
	r.xfer(cmdTxOn)
	if r.busErr != nil {
		return
	}
	if !r.pulse.SendFromSource(cfg, r.tx.Source(), r.legacyDone) {
		r.finishLegacy()
	}
}

// legacyDone is called by the pulse engine once the waveform is out.
func (r *Radio) legacyDone() {
	defer r.cs.Enter().Exit()
	if r.mode != SendingLegacy {
		return
	}
	r.finishLegacy()
	r.startNext()
}

func (r *Radio) finishLegacy() {
	r.tx.Finish()
	r.stats.TxLegacy++
	r.restoreNative()
	r.setMode(Idle, "legacy sent")
}

// restoreNative turns the transmitter off, re-enables the packet engine and returns the data pin
// to input.
func (r *Radio) restoreNative() {
	r.xfer(cmdIdle)
	r.xfer(nativeConfig(r.band))
	if err := r.data.In(rflink.GpioNoEdge); err != nil {
		r.log("cannot release data pin: %s", err)
	}
}

// rearm resets the FIFO's sync recognition so it hunts for the next sync word.
func (r *Radio) rearm() {
	r.xfer(cmdFifoOff)
	r.xfer(cmdFifoSync)
}

func (r *Radio) setMode(m Mode, reason string) {
	if m != r.mode {
		r.trace.push(r.mode, m, reason)
		r.mode = m
	}
}

// configure sends the configuration sequence.
func (r *Radio) configure() error {
	for _, c := range initSequence(r.band, r.freq, r.rate, r.group) {
		r.xfer(c)
	}
	if err := r.busErr; err != nil {
		return fmt.Errorf("rfm12: cannot configure radio: %w", err)
	}
	return nil
}

// xfer sends one command and returns the 16 bits shifted out by the chip. The first error is
// kept in busErr.
func (r *Radio) xfer(cmd uint16) uint16 {
	r.wBuf[0], r.wBuf[1] = byte(cmd>>8), byte(cmd)
	if err := r.spi.Tx(r.wBuf[:], r.rBuf[:]); err != nil {
		if r.busErr == nil {
			r.busErr = err
		}
		return 0
	}
	return uint16(r.rBuf[0])<<8 | uint16(r.rBuf[1])
}
