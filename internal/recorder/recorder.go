// Package recorder captures incoming OSC packets into a recording.
package recorder

import (
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/logging"
	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// State is the recorder lifecycle: Idle, Recording, Stopped.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Summary is a snapshot of the running counters.
type Summary struct {
	State            string        `json:"state"`
	PacketsReceived  int           `json:"packets_received"`
	PacketsRecorded  int           `json:"packets_recorded"`
	MessagesRecorded int           `json:"messages_recorded"`
	PacketsDropped   int           `json:"packets_dropped"`
	BadDatagrams     int           `json:"bad_datagrams"`
	Ignored          int           `json:"ignored"` // arrived while not recording
	Elapsed          time.Duration `json:"elapsed"`
}

// Event describes one accepted packet. It feeds the live dashboard.
type Event struct {
	Time     time.Time     `json:"time"`
	Offset   time.Duration `json:"offset"`
	Kind     string        `json:"kind"` // "message" or "bundle"
	Address  string        `json:"address"`
	Messages int           `json:"messages"`
	From     string        `json:"from,omitempty"`
}

// Options configures a Recorder. The zero value records every packet
// against the real clock.
type Options struct {
	Clock clock.Clock
	// Selector picks the messages to keep. Nil keeps everything.
	Selector recording.Predicate
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	// Observer, if set, is called for each accepted packet after the
	// recorder lock is released.
	Observer func(Event)
}

// Recorder accumulates packets delivered by a transport. It implements
// osc.Handler.
//
// Thread-safe for concurrent use: delivery may happen on any goroutine
// while another goroutine starts or stops the recorder.
type Recorder struct {
	clock    clock.Clock
	selector recording.Predicate
	log      *zap.Logger
	metrics  *metrics.Metrics
	observer func(Event)

	mu         sync.Mutex
	state      State
	start, end time.Time
	rec        *recording.Recording
	sum        Summary
}

var _ osc.Handler = (*Recorder)(nil)

// New creates an idle recorder.
func New(opts Options) *Recorder {
	return &Recorder{
		clock:    clock.Default(opts.Clock),
		selector: opts.Selector,
		log:      logging.OrNop(opts.Logger).Named("recorder"),
		metrics:  opts.Metrics,
		observer: opts.Observer,
	}
}

// Start begins a new recording, discarding anything captured before.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateRecording {
		return errors.Wrap(errdefs.ErrInvalidState, "recorder already recording")
	}
	r.state = StateRecording
	r.start = r.clock.Now()
	r.end = time.Time{}
	r.rec = recording.New(r.start)
	r.sum = Summary{}

	r.log.Info("recording started", zap.String("id", r.rec.ID.String()))
	return nil
}

// Stop ends the recording and hands it to the caller. Nothing is appended
// to the returned recording afterwards.
func (r *Recorder) Stop() (*recording.Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateRecording {
		return nil, errors.Wrapf(errdefs.ErrInvalidState, "stop while %s", r.state)
	}
	r.state = StateStopped
	r.end = r.clock.Now()
	r.rec.Duration = r.end.Sub(r.start)

	rec := r.rec
	r.rec = nil

	r.log.Info("recording stopped",
		zap.String("id", rec.ID.String()),
		zap.Duration("duration", rec.Duration),
		zap.Int("packets_received", r.sum.PacketsReceived),
		zap.Int("packets_recorded", r.sum.PacketsRecorded),
		zap.Int("messages_recorded", r.sum.MessagesRecorded),
		zap.Int("bad_datagrams", r.sum.BadDatagrams),
	)
	return rec, nil
}

// Duration returns the span of the last finished recording.
func (r *Recorder) Duration() (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateStopped {
		return 0, errors.Wrapf(errdefs.ErrInvalidState, "duration while %s", r.state)
	}
	return r.end.Sub(r.start), nil
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Summary returns the counters of the current or last recording.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sum
	s.State = r.state.String()
	switch r.state {
	case StateRecording:
		s.Elapsed = r.clock.Since(r.start)
	case StateStopped:
		s.Elapsed = r.end.Sub(r.start)
	}
	return s
}

// HandlePacket timestamps p and appends whatever survives the selector.
func (r *Recorder) HandlePacket(p osc.Packet, from net.Addr) {
	d, err := recording.FromPacket(p)
	if err != nil {
		r.HandleBadData(nil, from, err)
		return
	}

	r.mu.Lock()
	if r.state != StateRecording {
		r.sum.Ignored++
		r.mu.Unlock()
		return
	}
	offset := r.clock.Since(r.start).Truncate(time.Millisecond)
	r.sum.PacketsReceived++
	r.metrics.PacketReceived()

	kept := d.Filter(r.selector)
	if kept == nil {
		r.sum.PacketsDropped++
		r.metrics.PacketDropped()
		r.mu.Unlock()
		return
	}

	n := kept.MessageCount()
	r.rec.Append(offset, kept)
	r.sum.PacketsRecorded++
	r.sum.MessagesRecorded += n
	r.metrics.PacketRecorded(n)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer(newEvent(r.clock.Now(), offset, kept, n, from))
	}
}

// HandleBadData logs and counts a datagram that failed to decode. Capture
// carries on.
func (r *Recorder) HandleBadData(data []byte, from net.Addr, err error) {
	r.mu.Lock()
	r.sum.BadDatagrams++
	r.mu.Unlock()
	r.metrics.BadDatagram()

	fields := []zap.Field{zap.Int("bytes", len(data)), zap.Error(err)}
	if from != nil {
		fields = append(fields, zap.String("from", from.String()))
	}
	r.log.Warn("dropping undecodable datagram", fields...)
}

func newEvent(now time.Time, offset time.Duration, d recording.Data, messages int, from net.Addr) Event {
	ev := Event{Time: now, Offset: offset, Messages: messages}
	if from != nil {
		ev.From = from.String()
	}
	for {
		switch v := d.(type) {
		case *recording.Message:
			if ev.Kind == "" {
				ev.Kind = "message"
			}
			ev.Address = v.Address
			return ev
		case *recording.Bundle:
			ev.Kind = "bundle"
			d = v.Elements[0]
		default:
			return ev
		}
	}
}
