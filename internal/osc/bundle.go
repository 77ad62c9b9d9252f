package osc

import (
	"bytes"
	"time"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

const bundleTag = "#bundle"

// maxBundleDepth bounds recursion when parsing nested bundles.
const maxBundleDepth = 32

// Bundle is a time tagged group of packets. Elements may themselves be
// bundles.
type Bundle struct {
	Timetag  Timetag
	Elements []Packet
}

var _ Packet = (*Bundle)(nil)

// NewBundle returns an empty bundle tagged with t.
func NewBundle(t time.Time) *Bundle {
	return &Bundle{Timetag: NewTimetag(t)}
}

// Append adds packets to the bundle.
func (b *Bundle) Append(p ...Packet) {
	b.Elements = append(b.Elements, p...)
}

// MarshalBinary encodes the bundle and every nested element.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	writePaddedString(&buf, bundleTag)
	writeUint64(&buf, uint64(b.Timetag))
	for i, el := range b.Elements {
		data, err := el.MarshalBinary()
		if err != nil {
			return nil, errors.WithMessagef(err, "bundle element %d", i)
		}
		writeUint32(&buf, uint32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

func parseBundle(r *reader, depth int) (*Bundle, error) {
	if depth > maxBundleDepth {
		return nil, errors.Wrapf(errdefs.ErrDecode, "bundles nested deeper than %d", maxBundleDepth)
	}
	tag, err := r.readPaddedString()
	if err != nil {
		return nil, err
	}
	if tag != bundleTag {
		return nil, errors.Wrapf(errdefs.ErrDecode, "bundle header %q", tag)
	}
	tt, err := r.readUint64()
	if err != nil {
		return nil, err
	}
	b := &Bundle{Timetag: Timetag(tt)}

	for r.remaining() > 0 {
		size, err := r.readUint32()
		if err != nil {
			return nil, err
		}
		body, err := r.readBytes(int(size))
		if err != nil {
			return nil, errors.WithMessagef(err, "bundle element %d", len(b.Elements))
		}
		er := &reader{data: body}
		el, err := parsePacket(er, depth+1)
		if err != nil {
			return nil, errors.WithMessagef(err, "bundle element %d", len(b.Elements))
		}
		if er.remaining() != 0 {
			return nil, errors.Wrapf(errdefs.ErrDecode, "bundle element %d has %d trailing bytes", len(b.Elements), er.remaining())
		}
		b.Elements = append(b.Elements, el)
	}
	return b, nil
}
