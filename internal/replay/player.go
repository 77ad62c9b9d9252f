// Package replay loops a recording back onto the network with the original
// relative timing.
package replay

import (
	"container/heap"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/logging"
	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// State is the player lifecycle: Idle, Running, Stopped. It only moves
// forward.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Player.
type Options struct {
	// Period is the loop length. Zero derives it from the last packet
	// offset.
	Period  time.Duration
	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// OnStart is called with the playback start instant before the first
	// packet is sent.
	OnStart func(start time.Time)
	// Observer, if set, is called from the scheduling goroutine after
	// every transmission attempt.
	Observer func(Event)
}

// Event reports one transmission attempt.
type Event struct {
	Time   time.Time     `json:"time"`
	Round  int           `json:"round"`
	Index  int           `json:"index"`
	Offset time.Duration `json:"offset"`
	Bytes  int           `json:"bytes"`
	Error  string        `json:"error,omitempty"`
}

// Stats aggregates playback counters.
type Stats struct {
	State      string        `json:"state"`
	Packets    int           `json:"packets"`
	Period     time.Duration `json:"period"`
	Sent       uint64        `json:"sent"`
	SendErrors uint64        `json:"send_errors"`
	Loops      uint64        `json:"loops"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
}

// frame is a packet ready to send. wire is nil for live packets, which are
// encoded on every firing.
type frame struct {
	offset time.Duration
	data   recording.Data
	wire   []byte
}

// Player sends every packet of a recording once per period, forever, until
// stopped. A single goroutine drives all packets.
type Player struct {
	w        io.Writer
	frames   []frame
	period   time.Duration
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.Metrics
	onStart  func(time.Time)
	observer func(Event)

	mu        sync.Mutex
	state     State
	startedAt time.Time
	stop      chan struct{}
	done      chan struct{}

	sent       atomic.Uint64
	sendErrors atomic.Uint64
	loops      atomic.Uint64
}

// New validates rec and prepares it for playback to w. The recording is not
// modified. An empty recording is accepted and plays nothing.
func New(rec *recording.Recording, w io.Writer, opts Options) (*Player, error) {
	if rec == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "recording is required")
	}
	if w == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "destination is required")
	}
	if opts.Period < 0 {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "period must not be negative, got %s", opts.Period)
	}

	sorted := rec.Sorted()
	period, err := loopPeriod(sorted, opts.Period)
	if err != nil {
		return nil, err
	}

	frames := make([]frame, 0, len(sorted.Packets))
	for i, p := range sorted.Packets {
		if p.Offset < 0 {
			return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "packet %d has negative offset %s", i, p.Offset)
		}
		f := frame{offset: p.Offset, data: p.Data}
		if !p.Data.IsLive() {
			if f.wire, err = recording.WireBytes(p.Data); err != nil {
				return nil, errors.WithMessagef(err, "encoding packet %d", i)
			}
		}
		frames = append(frames, f)
	}

	return &Player{
		w:        w,
		frames:   frames,
		period:   period,
		clock:    clock.Default(opts.Clock),
		log:      logging.OrNop(opts.Logger).Named("player"),
		metrics:  opts.Metrics,
		onStart:  opts.OnStart,
		observer: opts.Observer,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// loopPeriod derives or checks the period for a sorted recording.
func loopPeriod(sorted *recording.Recording, requested time.Duration) (time.Duration, error) {
	if sorted.PacketCount() == 0 {
		return requested, nil
	}
	last := sorted.MaxOffset()
	if requested == 0 {
		if last <= 0 {
			return 0, errors.Wrap(errdefs.ErrInvalidArgument, "cannot derive a period: every packet is at offset 0")
		}
		return last, nil
	}
	if requested < last {
		return 0, errors.Wrapf(errdefs.ErrInvalidArgument,
			"period %s is shorter than the last packet offset %s", requested, last)
	}
	return requested, nil
}

// Period returns the loop length in use.
func (p *Player) Period() time.Duration {
	return p.period
}

// Start begins playback. It can be called once.
func (p *Player) Start() error {
	p.mu.Lock()
	if p.state != StateIdle {
		state := p.state
		p.mu.Unlock()
		return errors.Wrapf(errdefs.ErrInvalidState, "start while %s", state)
	}
	p.state = StateRunning
	start := p.clock.Now()
	p.startedAt = start
	p.mu.Unlock()

	if p.onStart != nil {
		p.onStart(start)
	}
	p.metrics.SetPlaying(true)
	p.log.Info("playback started",
		zap.Int("packets", len(p.frames)),
		zap.Duration("period", p.period),
	)

	go p.run(start)
	return nil
}

// Stop cancels all future transmissions and waits for the scheduling
// goroutine to exit. No packet is sent after Stop returns.
func (p *Player) Stop() error {
	p.mu.Lock()
	if p.state != StateRunning {
		state := p.state
		p.mu.Unlock()
		return errors.Wrapf(errdefs.ErrInvalidState, "stop while %s", state)
	}
	p.state = StateStopped
	close(p.stop)
	p.mu.Unlock()

	<-p.done
	p.metrics.SetPlaying(false)
	p.log.Info("playback stopped",
		zap.Uint64("sent", p.sent.Load()),
		zap.Uint64("send_errors", p.sendErrors.Load()),
		zap.Uint64("loops", p.loops.Load()),
	)
	return nil
}

// Done is closed when the scheduling goroutine has exited.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) Stats() Stats {
	p.mu.Lock()
	state, started := p.state, p.startedAt
	p.mu.Unlock()

	return Stats{
		State:      state.String(),
		Packets:    len(p.frames),
		Period:     p.period,
		Sent:       p.sent.Load(),
		SendErrors: p.sendErrors.Load(),
		Loops:      p.loops.Load(),
		StartedAt:  started,
	}
}

func (p *Player) run(start time.Time) {
	defer close(p.done)
	if len(p.frames) == 0 {
		return
	}

	q := make(fireQueue, 0, len(p.frames))
	for i, f := range p.frames {
		q = append(q, firing{at: start.Add(f.offset), index: i})
	}
	heap.Init(&q)
	last := len(p.frames) - 1

	for {
		next := q.peek()
		if wait := next.at.Sub(p.clock.Now()); wait > 0 {
			select {
			case <-p.stop:
				return
			case <-p.clock.After(wait):
			}
		}
		select {
		case <-p.stop:
			return
		default:
		}

		heap.Pop(&q)
		p.fire(next)
		if next.index == last {
			p.loops.Add(1)
			p.metrics.LoopCompleted()
		}

		// Fixed rate: the next time is computed from start, so late
		// firings do not push the schedule back.
		next.round++
		next.at = start.Add(p.frames[next.index].offset + time.Duration(next.round)*p.period)
		heap.Push(&q, next)
	}
}

// fire sends one frame. Failures are logged and counted and never end the
// schedule.
func (p *Player) fire(f firing) {
	fr := &p.frames[f.index]
	ev := Event{Round: f.round, Index: f.index, Offset: fr.offset}

	defer func() {
		if r := recover(); r != nil {
			p.failed(&ev, fmt.Errorf("panic: %v", r))
		}
		if p.observer != nil {
			ev.Time = p.clock.Now()
			p.observer(ev)
		}
	}()

	wire := fr.wire
	if wire == nil {
		var err error
		if wire, err = recording.WireBytes(fr.data); err != nil {
			p.failed(&ev, err)
			return
		}
	}

	n, err := p.w.Write(wire)
	if err != nil {
		p.failed(&ev, errors.Wrap(errdefs.ErrTransport, err.Error()))
		return
	}
	ev.Bytes = n
	p.sent.Add(1)
	p.metrics.PacketSent(n)
}

func (p *Player) failed(ev *Event, err error) {
	ev.Error = err.Error()
	p.sendErrors.Add(1)
	p.metrics.SendFailed()
	p.log.Warn("send failed",
		zap.Int("index", ev.Index),
		zap.Int("round", ev.Round),
		zap.Duration("offset", ev.Offset),
		zap.Error(err),
	)
}
