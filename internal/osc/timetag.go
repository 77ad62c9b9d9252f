package osc

import (
	"encoding/binary"
	"time"
)

const secondsFrom1900To1970 = 2208988800

// Immediately is the special time tag meaning "process on receipt".
const Immediately = Timetag(1)

// Timetag is an OSC time tag: a 64 bit NTP fixed point number. The high 32
// bits count seconds since 1900-01-01, the low 32 bits are the fraction of
// a second.
type Timetag uint64

// NewTimetag converts t to a time tag.
func NewTimetag(t time.Time) Timetag {
	secs := uint64(t.Unix()+secondsFrom1900To1970) << 32
	frac := (uint64(t.Nanosecond()) << 32) / uint64(time.Second)
	return Timetag(secs | frac)
}

// Time converts the time tag back to a time.Time in UTC.
func (t Timetag) Time() time.Time {
	secs := int64(t>>32) - secondsFrom1900To1970
	nanos := (uint64(t&0xffffffff) * uint64(time.Second)) >> 32
	return time.Unix(secs, int64(nanos)).UTC()
}

// Seconds returns the whole seconds since 1900.
func (t Timetag) Seconds() uint32 { return uint32(t >> 32) }

// Fraction returns the fractional part of the second.
func (t Timetag) Fraction() uint32 { return uint32(t) }

// MarshalBinary encodes the time tag as 8 big-endian bytes.
func (t Timetag) MarshalBinary() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t))
	return b, nil
}
