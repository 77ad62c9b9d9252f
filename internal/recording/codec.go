package recording

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
)

// FormatVersion is written into every encoded recording.
const FormatVersion = 1

// Field numbers of the persisted form. Each level is an independent
// protobuf message, so numbers are reused between levels.
const (
	fieldRecVersion   protowire.Number = 1
	fieldRecID        protowire.Number = 2
	fieldRecCreatedAt protowire.Number = 3
	fieldRecDuration  protowire.Number = 4
	fieldRecPacket    protowire.Number = 5

	fieldPktOffset  protowire.Number = 1
	fieldPktMessage protowire.Number = 2
	fieldPktBundle  protowire.Number = 3

	fieldMsgAddress protowire.Number = 1
	fieldMsgTags    protowire.Number = 2
	fieldMsgArg     protowire.Number = 3

	fieldArgInt32   protowire.Number = 1
	fieldArgFloat32 protowire.Number = 2
	fieldArgString  protowire.Number = 3
	fieldArgBlob    protowire.Number = 4
	fieldArgInt64   protowire.Number = 5
	fieldArgFloat64 protowire.Number = 6
	fieldArgTimetag protowire.Number = 7
	fieldArgBool    protowire.Number = 8
	fieldArgNil     protowire.Number = 9

	fieldBndTimetag protowire.Number = 1
	fieldBndMessage protowire.Number = 2
	fieldBndBundle  protowire.Number = 3
)

const maxOffsetMillis = math.MaxInt64 / int64(time.Millisecond)

// Marshal encodes r. The output is deterministic: equal recordings encode
// to equal bytes. Offsets and the duration are stored in whole milliseconds
// and float32 arguments keep single precision.
func Marshal(r *Recording) ([]byte, error) {
	if r == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "nil recording")
	}
	var b []byte
	b = protowire.AppendTag(b, fieldRecVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, FormatVersion)
	b = protowire.AppendTag(b, fieldRecID, protowire.BytesType)
	b = protowire.AppendBytes(b, r.ID[:])
	if !r.CreatedAt.IsZero() {
		b = protowire.AppendTag(b, fieldRecCreatedAt, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(r.CreatedAt.UnixNano()))
	}
	b = protowire.AppendTag(b, fieldRecDuration, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Duration.Milliseconds()))

	for i, p := range r.Packets {
		if p.Offset < 0 {
			return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "packet %d: negative offset %s", i, p.Offset)
		}
		pkt, err := appendPacket(nil, p)
		if err != nil {
			return nil, errors.WithMessagef(err, "packet %d", i)
		}
		b = protowire.AppendTag(b, fieldRecPacket, protowire.BytesType)
		b = protowire.AppendBytes(b, pkt)
	}
	return b, nil
}

func appendPacket(b []byte, p RecordedPacket) ([]byte, error) {
	b = protowire.AppendTag(b, fieldPktOffset, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Offset.Milliseconds()))
	return appendData(b, p.Data, fieldPktMessage, fieldPktBundle)
}

func appendData(b []byte, d Data, msgField, bndField protowire.Number) ([]byte, error) {
	switch v := d.(type) {
	case *Message:
		m, err := appendMessage(nil, v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, msgField, protowire.BytesType)
		return protowire.AppendBytes(b, m), nil
	case *Bundle:
		bnd, err := appendBundle(nil, v)
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, bndField, protowire.BytesType)
		return protowire.AppendBytes(b, bnd), nil
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "unsupported data %T", d)
	}
}

func appendMessage(b []byte, m *Message) ([]byte, error) {
	args := m.Args()
	tags, err := osc.TypeTags(args)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "%s: %v", m.Address, err)
	}
	b = protowire.AppendTag(b, fieldMsgAddress, protowire.BytesType)
	b = protowire.AppendString(b, m.Address)
	b = protowire.AppendTag(b, fieldMsgTags, protowire.BytesType)
	b = protowire.AppendString(b, tags)
	for _, a := range args {
		b = protowire.AppendTag(b, fieldMsgArg, protowire.BytesType)
		b = protowire.AppendBytes(b, appendArgument(nil, a))
	}
	return b, nil
}

func appendArgument(b []byte, arg interface{}) []byte {
	switch v := arg.(type) {
	case int32:
		b = protowire.AppendTag(b, fieldArgInt32, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v)))
	case float32:
		b = protowire.AppendTag(b, fieldArgFloat32, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(v))
	case string:
		b = protowire.AppendTag(b, fieldArgString, protowire.BytesType)
		b = protowire.AppendString(b, v)
	case []byte:
		b = protowire.AppendTag(b, fieldArgBlob, protowire.BytesType)
		b = protowire.AppendBytes(b, v)
	case int64:
		b = protowire.AppendTag(b, fieldArgInt64, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(v))
	case float64:
		b = protowire.AppendTag(b, fieldArgFloat64, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	case osc.Timetag:
		b = protowire.AppendTag(b, fieldArgTimetag, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, uint64(v))
	case bool:
		b = protowire.AppendTag(b, fieldArgBool, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(v))
	case nil:
		b = protowire.AppendTag(b, fieldArgNil, protowire.VarintType)
		b = protowire.AppendVarint(b, 0)
	}
	return b
}

func appendBundle(b []byte, bnd *Bundle) ([]byte, error) {
	b = protowire.AppendTag(b, fieldBndTimetag, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, uint64(bnd.Timetag))
	var err error
	for _, el := range bnd.Elements {
		if b, err = appendData(b, el, fieldBndMessage, fieldBndBundle); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Unmarshal decodes bytes produced by Marshal. Errors wrap
// errdefs.ErrDecode. Unknown fields are skipped.
func Unmarshal(b []byte) (*Recording, error) {
	r := &Recording{}
	version := uint64(0)
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldRecVersion:
			v, n, err := consumeVarint(typ, b)
			version = v
			return n, err
		case fieldRecID:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			id, err := uuid.FromBytes(v)
			if err != nil {
				return n, errors.Wrapf(errdefs.ErrDecode, "recording id: %v", err)
			}
			r.ID = id
			return n, nil
		case fieldRecCreatedAt:
			v, n, err := consumeVarint(typ, b)
			r.CreatedAt = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
			return n, err
		case fieldRecDuration:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return n, err
			}
			r.Duration, err = millis(v)
			return n, err
		case fieldRecPacket:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			p, err := decodePacket(v)
			if err != nil {
				return n, errors.WithMessagef(err, "packet %d", len(r.Packets))
			}
			r.Packets = append(r.Packets, p)
			return n, nil
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, errors.Wrapf(errdefs.ErrDecode, "unsupported format version %d", version)
	}
	return r, nil
}

func decodePacket(b []byte) (RecordedPacket, error) {
	var p RecordedPacket
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldPktOffset:
			v, n, err := consumeVarint(typ, b)
			if err != nil {
				return n, err
			}
			p.Offset, err = millis(v)
			return n, err
		case fieldPktMessage, fieldPktBundle:
			d, n, err := decodeData(num == fieldPktMessage, typ, b)
			p.Data = d
			return n, err
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return p, err
	}
	if p.Data == nil {
		return p, errors.Wrap(errdefs.ErrDecode, "packet without data")
	}
	return p, nil
}

func decodeData(isMessage bool, typ protowire.Type, b []byte) (Data, int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return nil, n, err
	}
	if isMessage {
		m, err := decodeMessage(v)
		return m, n, err
	}
	bnd, err := decodeBundle(v)
	return bnd, n, err
}

func decodeMessage(b []byte) (*Message, error) {
	m := &Message{}
	var tags string
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldMsgAddress:
			v, n, err := consumeBytes(typ, b)
			m.Address = string(v)
			return n, err
		case fieldMsgTags:
			v, n, err := consumeBytes(typ, b)
			tags = string(v)
			return n, err
		case fieldMsgArg:
			v, n, err := consumeBytes(typ, b)
			if err != nil {
				return n, err
			}
			arg, err := decodeArgument(v)
			if err != nil {
				return n, err
			}
			m.Arguments = append(m.Arguments, arg)
			return n, nil
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "message %q", m.Address)
	}
	if got, _ := osc.TypeTags(m.Arguments); got != tags {
		return nil, errors.Wrapf(errdefs.ErrDecode, "message %q: type tags %q do not match arguments %q", m.Address, tags, got)
	}
	return m, nil
}

func decodeArgument(b []byte) (interface{}, error) {
	var (
		arg interface{}
		set bool
	)
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		set = true
		switch num {
		case fieldArgInt32:
			v, n, err := consumeVarint(typ, b)
			arg = int32(protowire.DecodeZigZag(v))
			return n, err
		case fieldArgFloat32:
			if typ != protowire.Fixed32Type {
				return 0, wrongType(num, typ)
			}
			v, n := protowire.ConsumeFixed32(b)
			arg = math.Float32frombits(v)
			return n, parseErr(n)
		case fieldArgString:
			v, n, err := consumeBytes(typ, b)
			arg = string(v)
			return n, err
		case fieldArgBlob:
			v, n, err := consumeBytes(typ, b)
			arg = append([]byte{}, v...)
			return n, err
		case fieldArgInt64:
			v, n, err := consumeVarint(typ, b)
			arg = protowire.DecodeZigZag(v)
			return n, err
		case fieldArgFloat64, fieldArgTimetag:
			if typ != protowire.Fixed64Type {
				return 0, wrongType(num, typ)
			}
			v, n := protowire.ConsumeFixed64(b)
			if num == fieldArgTimetag {
				arg = osc.Timetag(v)
			} else {
				arg = math.Float64frombits(v)
			}
			return n, parseErr(n)
		case fieldArgBool:
			v, n, err := consumeVarint(typ, b)
			arg = protowire.DecodeBool(v)
			return n, err
		case fieldArgNil:
			_, n, err := consumeVarint(typ, b)
			arg = nil
			return n, err
		}
		set = false
		return skipField(num, typ, b)
	})
	if err != nil {
		return nil, err
	}
	if !set {
		return nil, errors.Wrap(errdefs.ErrDecode, "argument without value")
	}
	return arg, nil
}

func decodeBundle(b []byte) (*Bundle, error) {
	bnd := &Bundle{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fieldBndTimetag:
			if typ != protowire.Fixed64Type {
				return 0, wrongType(num, typ)
			}
			v, n := protowire.ConsumeFixed64(b)
			bnd.Timetag = osc.Timetag(v)
			return n, parseErr(n)
		case fieldBndMessage, fieldBndBundle:
			d, n, err := decodeData(num == fieldBndMessage, typ, b)
			if err == nil {
				bnd.Elements = append(bnd.Elements, d)
			}
			return n, err
		}
		return skipField(num, typ, b)
	})
	if err != nil {
		return nil, errors.WithMessage(err, "bundle")
	}
	return bnd, nil
}

// walkFields calls visit for each field in b. visit receives the bytes after
// the tag and returns how many of them the field value used.
func walkFields(b []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if err := parseErr(n); err != nil {
			return err
		}
		b = b[n:]
		n, err := visit(num, typ, b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	return n, parseErr(n)
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, errors.Wrapf(errdefs.ErrDecode, "expected varint, got wire type %d", typ)
	}
	v, n := protowire.ConsumeVarint(b)
	return v, n, parseErr(n)
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, errors.Wrapf(errdefs.ErrDecode, "expected bytes, got wire type %d", typ)
	}
	v, n := protowire.ConsumeBytes(b)
	return v, n, parseErr(n)
}

func parseErr(n int) error {
	if n < 0 {
		return errors.Wrap(errdefs.ErrDecode, protowire.ParseError(n).Error())
	}
	return nil
}

func wrongType(num protowire.Number, typ protowire.Type) error {
	return errors.Wrapf(errdefs.ErrDecode, "field %d: unexpected wire type %d", num, typ)
}

func millis(v uint64) (time.Duration, error) {
	if v > uint64(maxOffsetMillis) {
		return 0, errors.Wrapf(errdefs.ErrDecode, "%d ms out of range", v)
	}
	return time.Duration(v) * time.Millisecond, nil
}
