// Package rflink is the link layer for battery-powered sensor nodes talking to each other over an
// RFM12-style sub-GHz FSK/OOK transceiver using the JeeLabs RF12 packet format.
//
// The root package only holds the small hardware interfaces the link layer is written against
// (SPI bus, GPIO pins, compare timer). The layers themselves live in their own directories, leaves
// first: ring, chunk, crc16, framer, pulse and rfm12. Backends for real hardware are in shim and
// spimux, and cmd/rfgateway bridges a radio to MQTT.
package rflink
