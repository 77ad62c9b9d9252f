// Package recording exposes the captured OSC data model.
package recording

import (
	"time"

	internalrecording "github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// Recording is a captured session: packets with their arrival offsets.
type Recording = internalrecording.Recording

// RecordedPacket is one captured datum and its offset.
type RecordedPacket = internalrecording.RecordedPacket

// Data is a Message or a Bundle.
type Data = internalrecording.Data

// Message is one OSC message.
type Message = internalrecording.Message

// Bundle groups messages and nested bundles under a timetag.
type Bundle = internalrecording.Bundle

// Predicate selects messages.
type Predicate = internalrecording.Predicate

// New returns an empty recording created at t.
func New(createdAt time.Time) *Recording {
	return internalrecording.New(createdAt)
}

// NewMessage creates a message with fixed arguments.
func NewMessage(addr string, args ...interface{}) *Message {
	return internalrecording.NewMessage(addr, args...)
}

// Marshal encodes a recording in the persistent wire format.
func Marshal(r *Recording) ([]byte, error) {
	return internalrecording.Marshal(r)
}

// Unmarshal decodes bytes produced by Marshal.
func Unmarshal(b []byte) (*Recording, error) {
	return internalrecording.Unmarshal(b)
}
