package osc

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

// MaxPacketSize is the largest datagram the transport reads.
const MaxPacketSize = 65535

// padBytesNeeded returns how many zero bytes bring n up to a multiple of 4.
func padBytesNeeded(n int) int {
	return (4 - n%4) % 4
}

// writePaddedString writes s, a terminating NUL and enough padding to end on
// a 4 byte boundary.
func writePaddedString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
	buf.Write(make([]byte, padBytesNeeded(len(s)+1)))
}

func writeBlob(buf *bytes.Buffer, b []byte) {
	writeUint32(buf, uint32(len(b)))
	buf.Write(b)
	buf.Write(make([]byte, padBytesNeeded(len(b))))
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// reader walks a datagram and reports truncation as a decode error.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) readPaddedString() (string, error) {
	end := bytes.IndexByte(r.data[r.pos:], 0)
	if end < 0 {
		return "", errors.Wrapf(errdefs.ErrDecode, "unterminated string at offset %d", r.pos)
	}
	s := string(r.data[r.pos : r.pos+end])
	n := end + 1
	n += padBytesNeeded(n)
	if n > r.remaining() {
		return "", errors.Wrapf(errdefs.ErrDecode, "string padding runs past end at offset %d", r.pos)
	}
	r.pos += n
	return s, nil
}

func (r *reader) readUint32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, errors.Wrapf(errdefs.ErrDecode, "need 4 bytes at offset %d, have %d", r.pos, r.remaining())
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) readUint64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, errors.Wrapf(errdefs.ErrDecode, "need 8 bytes at offset %d, have %d", r.pos, r.remaining())
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, errors.Wrapf(errdefs.ErrDecode, "need %d bytes at offset %d, have %d", n, r.pos, r.remaining())
	}
	b := make([]byte, n)
	copy(b, r.data[r.pos:r.pos+n])
	r.pos += n
	return b, nil
}

func (r *reader) readBlob() ([]byte, error) {
	size, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if int64(size) > int64(r.remaining()) {
		return nil, errors.Wrapf(errdefs.ErrDecode, "blob of %d bytes exceeds datagram", size)
	}
	b, err := r.readBytes(int(size))
	if err != nil {
		return nil, err
	}
	if _, err := r.readBytes(padBytesNeeded(int(size))); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *reader) readArgument(tag TypeTag) (interface{}, error) {
	switch tag {
	case TypeInt32:
		v, err := r.readUint32()
		return int32(v), err
	case TypeFloat32:
		v, err := r.readUint32()
		return math.Float32frombits(v), err
	case TypeString:
		return r.readPaddedString()
	case TypeBlob:
		return r.readBlob()
	case TypeInt64:
		v, err := r.readUint64()
		return int64(v), err
	case TypeFloat64:
		v, err := r.readUint64()
		return math.Float64frombits(v), err
	case TypeTimetag:
		v, err := r.readUint64()
		return Timetag(v), err
	case TypeNil:
		return nil, nil
	case TypeTrue:
		return true, nil
	case TypeFalse:
		return false, nil
	default:
		return nil, errors.Wrapf(errdefs.ErrDecode, "unsupported type tag %q", byte(tag))
	}
}
