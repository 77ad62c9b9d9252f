package osc

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

// Message is a single OSC message: an address pattern and zero or more
// arguments.
type Message struct {
	Address   string
	Arguments []interface{}
}

var _ Packet = (*Message)(nil)

// NewMessage returns a message for addr carrying args.
func NewMessage(addr string, args ...interface{}) *Message {
	return &Message{Address: addr, Arguments: args}
}

// Append adds arguments, rejecting values with no OSC type.
func (m *Message) Append(args ...interface{}) error {
	for _, a := range args {
		if ToTypeTag(a) == TypeInvalid {
			return errors.Wrapf(errdefs.ErrInvalidArgument, "unsupported argument type %T", a)
		}
	}
	m.Arguments = append(m.Arguments, args...)
	return nil
}

// TypeTags returns the tag string without the leading comma.
func (m *Message) TypeTags() (string, error) {
	return TypeTags(m.Arguments)
}

func (m *Message) String() string {
	if m == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(m.Address)
	tags, err := m.TypeTags()
	if err != nil || tags == "" {
		return sb.String()
	}
	sb.WriteString(" ,")
	sb.WriteString(tags)
	for _, arg := range m.Arguments {
		switch a := arg.(type) {
		case nil:
			sb.WriteString(" Nil")
		case []byte:
			fmt.Fprintf(&sb, " blob[%d]", len(a))
		case string:
			fmt.Fprintf(&sb, " %q", a)
		default:
			fmt.Fprintf(&sb, " %v", a)
		}
	}
	return sb.String()
}

// MarshalBinary encodes the message in OSC wire format.
func (m *Message) MarshalBinary() ([]byte, error) {
	if !strings.HasPrefix(m.Address, "/") {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "address %q must start with /", m.Address)
	}
	tags, err := m.TypeTags()
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "message %s: %v", m.Address, err)
	}

	var buf bytes.Buffer
	writePaddedString(&buf, m.Address)
	writePaddedString(&buf, ","+tags)
	for _, arg := range m.Arguments {
		switch a := arg.(type) {
		case int32:
			writeUint32(&buf, uint32(a))
		case float32:
			writeUint32(&buf, math.Float32bits(a))
		case string:
			writePaddedString(&buf, a)
		case []byte:
			writeBlob(&buf, a)
		case int64:
			writeUint64(&buf, uint64(a))
		case float64:
			writeUint64(&buf, math.Float64bits(a))
		case Timetag:
			writeUint64(&buf, uint64(a))
		}
	}
	return buf.Bytes(), nil
}

func parseMessage(r *reader) (*Message, error) {
	addr, err := r.readPaddedString()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(addr, "/") {
		return nil, errors.Wrapf(errdefs.ErrDecode, "address %q does not start with /", addr)
	}
	msg := &Message{Address: addr}

	// Very old senders omit the type tag string entirely.
	if r.remaining() == 0 {
		return msg, nil
	}
	tags, err := r.readPaddedString()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(tags, ",") {
		return nil, errors.Wrapf(errdefs.ErrDecode, "type tag string %q does not start with a comma", tags)
	}
	tags = tags[1:]

	msg.Arguments = make([]interface{}, 0, len(tags))
	for i := 0; i < len(tags); i++ {
		arg, err := r.readArgument(TypeTag(tags[i]))
		if err != nil {
			return nil, errors.WithMessagef(err, "%s argument %d", addr, i)
		}
		msg.Arguments = append(msg.Arguments, arg)
	}
	return msg, nil
}
