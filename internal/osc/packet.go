package osc

import (
	"encoding"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

// Packet is an OSC message or bundle.
type Packet interface {
	encoding.BinaryMarshaler
}

// ParsePacket decodes a single datagram. Errors wrap errdefs.ErrDecode.
func ParsePacket(data []byte) (Packet, error) {
	r := &reader{data: data}
	p, err := parsePacket(r, 0)
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, errors.Wrapf(errdefs.ErrDecode, "%d trailing bytes", r.remaining())
	}
	return p, nil
}

func parsePacket(r *reader, depth int) (Packet, error) {
	if r.remaining() == 0 {
		return nil, errors.Wrap(errdefs.ErrDecode, "empty packet")
	}
	switch r.data[r.pos] {
	case '/':
		return parseMessage(r)
	case '#':
		return parseBundle(r, depth)
	default:
		return nil, errors.Wrapf(errdefs.ErrDecode, "packet starts with %q", r.data[r.pos])
	}
}
