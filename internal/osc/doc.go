// Package osc implements the Open Sound Control 1.0 packet format and a small
// UDP transport around it.
//
// A Packet is either a *Message or a *Bundle. ParsePacket decodes one
// datagram, MarshalBinary encodes one. Client sends datagrams to a single
// destination and Listener delivers decoded packets to a Handler in arrival
// order.
package osc
