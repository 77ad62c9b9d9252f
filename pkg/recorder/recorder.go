package recorder

import (
	"context"

	internalrecorder "github.com/SmitUplenchwar2687/vmcloop/internal/recorder"
)

// Recorder accumulates incoming OSC packets into a recording.
type Recorder = internalrecorder.Recorder

// Options configures a Recorder.
type Options = internalrecorder.Options

// Summary is a snapshot of the capture counters.
type Summary = internalrecorder.Summary

// Event describes one accepted packet.
type Event = internalrecorder.Event

// Session ties a Recorder to a UDP listener.
type Session = internalrecorder.Session

// New creates an idle recorder.
func New(opts Options) *Recorder {
	return internalrecorder.New(opts)
}

// StartSession binds addr and records into rec until stopped.
func StartSession(ctx context.Context, addr string, rec *Recorder) (*Session, error) {
	return internalrecorder.StartSession(ctx, addr, rec)
}
