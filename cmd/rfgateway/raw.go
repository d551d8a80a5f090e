// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tve/rflink/field"
	"github.com/tve/rflink/pulse"
	"github.com/tve/rflink/rfm12"
)

// RawRxPacket is the structure published to MQTT for raw packets received on a radio.
type RawRxPacket struct {
	Group  byte      `json:"group"`  // network group the radio listens on
	Header byte      `json:"header"` // JeeLabs header byte
	Packet []byte    `json:"packet"` // data following the header, excl CRC
	At     time.Time `json:"at"`     // time the packet was taken off the queue
}

// RawTxPacket is the payload expected via MQTT for raw packets to be transmitted on a radio.
// When Legacy is set the packet is sent as an on/off keyed serial waveform and Header is
// ignored.
type RawTxPacket struct {
	Header byte      `json:"header"`
	Packet []byte    `json:"packet"`
	Legacy *LegacyTx `json:"legacy,omitempty"`
}

// LegacyTx describes the serial waveform of a legacy transmission.
type LegacyTx struct {
	BitTicks uint16 `json:"bit_ticks"` // timer ticks per bit
	MSBFirst bool   `json:"msb_first"`
	Parity   string `json:"parity"` // "", "none", "even" or "odd"
	StopBits uint8  `json:"stop_bits"`
	Inverted bool   `json:"inverted"`
}

func (l *LegacyTx) config() (pulse.SerialConfig, error) {
	cfg := pulse.SerialConfig{BitTicks: l.BitTicks, StopBits: l.StopBits, Inverted: l.Inverted}
	if l.BitTicks == 0 {
		return cfg, fmt.Errorf("legacy bit_ticks must not be zero")
	}
	if l.StopBits > 2 {
		return cfg, fmt.Errorf("legacy stop_bits must be 1 or 2")
	}
	if l.MSBFirst {
		cfg.Order = pulse.MSBFirst
	}
	switch l.Parity {
	case "", "none":
	case "even":
		cfg.Parity = pulse.ParityEven
	case "odd":
		cfg.Parity = pulse.ParityOdd
	default:
		return cfg, fmt.Errorf("unknown legacy parity %q", l.Parity)
	}
	return cfg, nil
}

// gateway moves packets between a radio and MQTT. All radio application calls are made from
// the run goroutine.
type gateway struct {
	radio   *rfm12.Radio
	group   byte
	prefix  string
	mq      *mq
	notify  <-chan struct{}
	tx      chan *RawTxPacket
	autoAck bool
	log     *zap.SugaredLogger
}

// startGateway creates the MQTT subscription for tx and starts the gatewaying goroutine.
func startGateway(ctx context.Context, radio *rfm12.Radio, notify <-chan struct{}, rc RadioConfig,
	mq *mq, logger *zap.SugaredLogger) error {
	gw := &gateway{
		radio:   radio,
		group:   rc.Group,
		prefix:  rc.Prefix,
		mq:      mq,
		notify:  notify,
		tx:      make(chan *RawTxPacket, 10),
		autoAck: rc.AutoAck,
		log:     logger,
	}
	err := mq.Subscribe(topicJoin(rc.Prefix, "tx"), func(m *Message) {
		var pkt RawTxPacket
		if err := mq.codec.Unmarshal(m.Payload, &pkt); err != nil {
			logger.Warnf("cannot decode payload for %s: %s", m.Topic, err)
			return
		}
		select {
		case gw.tx <- &pkt:
		default:
			logger.Warnf("%s: tx backlog full, dropping packet", gw.prefix)
		}
	})
	if err != nil {
		return err
	}
	go gw.run(ctx)
	return nil
}

func (gw *gateway) run(ctx context.Context) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			gw.log.Infof("%s: gateway goroutine exiting, stats %+v", gw.prefix, gw.radio.Stats())
			return
		case <-gw.notify:
		case <-tick.C:
		case pkt := <-gw.tx:
			gw.transmit(pkt)
		}
		gw.drain()
	}
}

// drain publishes every packet waiting in the radio's queue.
func (gw *gateway) drain() {
	for {
		pkt, ok := gw.radio.ReceivePacket()
		if !ok {
			return
		}
		gw.log.Debugf("%s: RX %s %db: %#x", gw.prefix, pkt.Header, len(pkt.Payload), pkt.Payload)
		if gw.autoAck && pkt.Header.WantsAck() {
			if !gw.radio.SendAck(pkt.Header) {
				gw.log.Warnf("%s: no room to ACK node %d", gw.prefix, pkt.Header.Node())
			}
		}
		raw := &RawRxPacket{Group: gw.group, Header: byte(pkt.Header), Packet: pkt.Payload, At: time.Now()}
		if err := gw.mq.Publish(topicJoin(gw.prefix, "rx"), raw); err != nil {
			gw.log.Error(err)
		}
	}
}

func (gw *gateway) transmit(pkt *RawTxPacket) {
	if pkt.Legacy != nil {
		cfg, err := pkt.Legacy.config()
		if err != nil {
			gw.log.Warnf("%s: %s", gw.prefix, err)
			return
		}
		gw.log.Debugf("%s: TX legacy %db: %#x", gw.prefix, len(pkt.Packet), pkt.Packet)
		if !gw.radio.TransmitLegacy(cfg, field.Bytes(pkt.Packet)) {
			gw.log.Warnf("%s: legacy packet rejected", gw.prefix)
		}
		return
	}
	gw.log.Debugf("%s: TX %s %db: %#x", gw.prefix, rfm12.Header(pkt.Header), len(pkt.Packet), pkt.Packet)
	if !gw.radio.TransmitNative(pkt.Header, field.Bytes(pkt.Packet)) {
		gw.log.Warnf("%s: packet rejected, too long or queue full", gw.prefix)
	}
}
