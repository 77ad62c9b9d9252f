// Package recording holds the captured packet model: messages and bundles as
// a recursive Data tree, timestamped RecordedPackets, and the Recording that
// collects them, together with its persisted encoding.
package recording

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
)

// Predicate selects messages.
type Predicate func(m *Message) bool

// MessageFunc transforms a message. Returning nil drops the message.
type MessageFunc func(m *Message) *Message

// ArgumentFunc produces an argument value at send time.
type ArgumentFunc func() interface{}

// Data is either a *Message or a *Bundle.
//
// Filter and MapMessages never modify the receiver. A result of nil means
// nothing survived.
type Data interface {
	// MessageCount returns the number of leaf messages.
	MessageCount() int
	Filter(p Predicate) Data
	MapMessages(fn MessageFunc) Data
	// Packet converts to the wire representation.
	Packet() osc.Packet
	// IsLive reports whether any message computes its arguments at send
	// time, in which case the wire bytes must not be cached.
	IsLive() bool

	isData()
}

// Message is a leaf datum.
type Message struct {
	Address   string
	Arguments []interface{}

	live ArgumentFunc
}

// NewMessage returns a message carrying args.
func NewMessage(addr string, args ...interface{}) *Message {
	return &Message{Address: addr, Arguments: args}
}

// NewLiveMessage returns a message whose single argument is produced by fn
// each time the message is converted to a packet.
func NewLiveMessage(addr string, fn ArgumentFunc) *Message {
	return &Message{Address: addr, live: fn}
}

func (*Message) isData() {}

// Args returns the argument values, evaluating a live argument.
func (m *Message) Args() []interface{} {
	if m.live != nil {
		return []interface{}{m.live()}
	}
	return m.Arguments
}

// TypeTags returns one tag character per argument.
func (m *Message) TypeTags() string {
	tags, err := osc.TypeTags(m.Args())
	if err != nil {
		return ""
	}
	return tags
}

func (m *Message) MessageCount() int { return 1 }

func (m *Message) Filter(p Predicate) Data {
	if p == nil || p(m) {
		return m
	}
	return nil
}

func (m *Message) MapMessages(fn MessageFunc) Data {
	out := fn(m)
	if out == nil {
		return nil
	}
	return out
}

func (m *Message) Packet() osc.Packet {
	args := m.Args()
	return &osc.Message{
		Address:   m.Address,
		Arguments: append([]interface{}(nil), args...),
	}
}

func (m *Message) IsLive() bool { return m.live != nil }

func (m *Message) String() string {
	return m.Packet().(*osc.Message).String()
}

// Bundle is a time tagged group of Data.
type Bundle struct {
	Timetag  osc.Timetag
	Elements []Data
}

// NewBundle returns a bundle holding elements.
func NewBundle(tt osc.Timetag, elements ...Data) *Bundle {
	return &Bundle{Timetag: tt, Elements: elements}
}

func (*Bundle) isData() {}

func (b *Bundle) MessageCount() int {
	return lo.SumBy(b.Elements, func(d Data) int { return d.MessageCount() })
}

func (b *Bundle) Filter(p Predicate) Data {
	return b.rebuild(func(d Data) Data { return d.Filter(p) })
}

func (b *Bundle) MapMessages(fn MessageFunc) Data {
	return b.rebuild(func(d Data) Data { return d.MapMessages(fn) })
}

// rebuild applies fn to each element and collapses to nil when no element
// survives.
func (b *Bundle) rebuild(fn func(Data) Data) Data {
	out := make([]Data, 0, len(b.Elements))
	for _, el := range b.Elements {
		if d := fn(el); d != nil {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return &Bundle{Timetag: b.Timetag, Elements: out}
}

func (b *Bundle) Packet() osc.Packet {
	return &osc.Bundle{
		Timetag:  b.Timetag,
		Elements: lo.Map(b.Elements, func(d Data, _ int) osc.Packet { return d.Packet() }),
	}
}

func (b *Bundle) IsLive() bool {
	return lo.SomeBy(b.Elements, func(d Data) bool { return d.IsLive() })
}

// FromPacket converts a decoded OSC packet into Data.
func FromPacket(p osc.Packet) (Data, error) {
	switch v := p.(type) {
	case *osc.Message:
		return &Message{Address: v.Address, Arguments: v.Arguments}, nil
	case *osc.Bundle:
		b := &Bundle{Timetag: v.Timetag, Elements: make([]Data, 0, len(v.Elements))}
		for _, el := range v.Elements {
			d, err := FromPacket(el)
			if err != nil {
				return nil, err
			}
			b.Elements = append(b.Elements, d)
		}
		return b, nil
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "unsupported packet type %T", p)
	}
}

// WireBytes encodes d in OSC wire format.
func WireBytes(d Data) ([]byte, error) {
	return d.Packet().MarshalBinary()
}
