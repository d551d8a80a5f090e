// Copyright 2016 by Thorsten von Eicken

package rfm12

import "fmt"

// Header is the JeeLabs RF12 header byte that precedes the length byte in every frame.
//
// http://jeelabs.org/2011/06/10/rf12-broadcasts-and-acks/index.html
// Bit 7 ctl : 0=data 1=special.
// Bit 6 dst : 0=node is the sender 1=node is the destination.
// Bit 5 ack : 0=no-ack 1=ack-req.
// Bits 0-4  : 32 nodes, 0 is used for broadcasts and 31 for anonymous tx-only nodes.
// The following ctl/ack combinations are used:
// c=0, a=0 : data, no ack requested.
// c=0, a=1 : data, ack requested.
// c=1, a=0 : ack.
// c=1, a=1 : special (undefined).
type Header byte

const (
	HdrCtl  Header = 0x80
	HdrDst  Header = 0x40
	HdrAck  Header = 0x20
	HdrNode Header = 0x1F
)

// DefaultGroup is the JeeLabs default network group.
const DefaultGroup = 212

// MakeHeader assembles a data header. With toNode false node is the sender's id.
func MakeHeader(node byte, toNode, ack bool) Header {
	h := Header(node) & HdrNode
	if toNode {
		h |= HdrDst
	}
	if ack {
		h |= HdrAck
	}
	return h
}

// Node returns the node id.
func (h Header) Node() byte { return byte(h & HdrNode) }

// ToNode reports whether the node id is the destination rather than the sender.
func (h Header) ToNode() bool { return h&HdrDst != 0 }

// WantsAck reports whether h is a data frame asking to be acknowledged.
func (h Header) WantsAck() bool { return h&(HdrCtl|HdrAck) == HdrAck }

// IsAck reports whether h is an acknowledgement.
func (h Header) IsAck() bool { return h&(HdrCtl|HdrAck) == HdrCtl }

// AckReply returns the header of the acknowledgement for a frame carrying h. A frame sent to us
// is acked as a plain ctl frame, a frame from a node is acked back to that node.
func (h Header) AckReply() Header {
	if h.ToNode() {
		return HdrCtl
	}
	return HdrCtl | HdrDst | h&HdrNode
}

func (h Header) String() string {
	kind := "data"
	switch {
	case h.WantsAck():
		kind = "data+ack"
	case h.IsAck():
		kind = "ack"
	case h&(HdrCtl|HdrAck) == HdrCtl|HdrAck:
		kind = "special"
	}
	dir := "from"
	if h.ToNode() {
		dir = "to"
	}
	return fmt.Sprintf("%s %s node %d", kind, dir, h.Node())
}
