// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tve/rflink/rfm12"
	"github.com/tve/rflink/varint"
)

//===== JeeLabs RF12 ACK protocol

// jlAck takes a raw RF12 packet, looks whether it requests an ack and if so publishes one. It is
// the module alternative to the radio's AutoAck setting and is meant to publish to the radio's
// tx topic.
func jlAck(m *Message, c codec, pub pubFunc, log *zap.SugaredLogger) {
	var raw RawRxPacket
	if err := c.Unmarshal(m.Payload, &raw); err != nil {
		log.Warnf("cannot decode packet: %s", err)
		return
	}
	h := rfm12.Header(raw.Header)
	if !h.WantsAck() {
		return // no ack requested
	}
	log.Debugf("ACK reply to node %d", h.Node())
	pub("", RawTxPacket{Header: byte(h.AckReply())})
}

func init() {
	RegisterModule(module{"jl-ack", jlAck})
}

//===== JeeLabs RF12 packet decoder

// jlRxPacket is the structure of the packets published to MQTT by the jl-decode module.
type jlRxPacket struct {
	RawRxPacket
	Node byte `json:"node"`
	Dst  bool `json:"dst"`
	Ack  bool `json:"ack"`
	Type byte `json:"type"`
}

// jlDecode splits the header of a packet and takes the first data byte as a type byte. It
// publishes to a topic by adding "/<type>" to the configured publication topic. This is intended
// to allow further decoding by having modules subscribe to their packet type.
func jlDecode(m *Message, c codec, pub pubFunc, log *zap.SugaredLogger) {
	var raw RawRxPacket
	if err := c.Unmarshal(m.Payload, &raw); err != nil {
		log.Warnf("cannot decode packet: %s", err)
		return
	}
	pkt, ok := splitJL(raw)
	if !ok {
		return
	}
	pub(fmt.Sprintf("%d", pkt.Type), pkt)
}

func splitJL(raw RawRxPacket) (jlRxPacket, bool) {
	if len(raw.Packet) < 1 {
		return jlRxPacket{}, false
	}
	h := rfm12.Header(raw.Header)
	pkt := jlRxPacket{RawRxPacket: raw, Node: h.Node(), Dst: h.ToNode(), Ack: h.WantsAck(),
		Type: raw.Packet[0]}
	pkt.Packet = raw.Packet[1:]
	return pkt, true
}

func init() {
	RegisterModule(module{"jl-decode", jlDecode})
}

//===== JeeLabs RF12 varint decoder

// varintRxPacket is the structure of packets published to MQTT by the jl-varint decoder.
type varintRxPacket struct {
	jlRxPacket
	Data []int `json:"data"`
}

// jlviDecode decodes varints in the payload of a packet. It expects a decoded packet whose
// payload consists entirely of varints.
func jlviDecode(m *Message, c codec, pub pubFunc, log *zap.SugaredLogger) {
	var pkt jlRxPacket
	if err := c.Unmarshal(m.Payload, &pkt); err != nil {
		log.Warnf("cannot decode packet: %s", err)
		return
	}
	pub("", varintRxPacket{jlRxPacket: pkt, Data: varint.Decode(pkt.Packet)})
}

func init() {
	RegisterModule(module{"jl-varint", jlviDecode})
}

//===== formatted packets

// formattedPacket is published by the jl-format module for packet types with a known format.
type formattedPacket struct {
	jlRxPacket
	Format string       `json:"format"`
	Value  fmt.Stringer `json:"value"`
}

// jlFormat decodes the payload of packets of a registered type.
func jlFormat(m *Message, c codec, pub pubFunc, log *zap.SugaredLogger) {
	var pkt jlRxPacket
	if err := c.Unmarshal(m.Payload, &pkt); err != nil {
		log.Warnf("cannot decode packet: %s", err)
		return
	}
	f, ok := payloadFormats[pkt.Type]
	if !ok {
		return
	}
	v, err := f.decode(pkt.Packet)
	if err != nil {
		log.Debugf("node %d: bad %s packet: %s", pkt.Node, f.name, err)
		return
	}
	pub(f.name, formattedPacket{jlRxPacket: pkt, Format: f.name, Value: v})
}

func init() {
	RegisterModule(module{"jl-format", jlFormat})
}
