package recording

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RecordedPacket is one captured datum and when it arrived, measured from
// the start of the recording.
type RecordedPacket struct {
	Offset time.Duration
	Data   Data
}

// Recording is a captured session. Packets are kept in arrival order, which
// is not necessarily sorted by Offset once a recording has been rebuilt or
// loaded.
//
// A Recording handed out by the recorder is read-only. Filter, MapMessages
// and Sorted return new values.
type Recording struct {
	ID        uuid.UUID
	CreatedAt time.Time
	// Duration is the span between start and stop of capture. It is zero for
	// recordings that were not captured live.
	Duration time.Duration
	Packets  []RecordedPacket
}

// New returns an empty recording created at t.
func New(createdAt time.Time) *Recording {
	return &Recording{
		ID:        uuid.New(),
		CreatedAt: createdAt,
	}
}

// Append adds a packet.
func (r *Recording) Append(offset time.Duration, d Data) {
	r.Packets = append(r.Packets, RecordedPacket{Offset: offset, Data: d})
}

func (r *Recording) PacketCount() int {
	return len(r.Packets)
}

func (r *Recording) MessageCount() int {
	return lo.SumBy(r.Packets, func(p RecordedPacket) int { return p.Data.MessageCount() })
}

// MaxOffset returns the greatest packet offset, or 0 for an empty recording.
func (r *Recording) MaxOffset() time.Duration {
	var max time.Duration
	for _, p := range r.Packets {
		if p.Offset > max {
			max = p.Offset
		}
	}
	return max
}

// Filter returns a recording holding only the messages p accepts. Packets
// with nothing left are dropped.
func (r *Recording) Filter(p Predicate) *Recording {
	return r.rebuild(func(d Data) Data { return d.Filter(p) })
}

// MapMessages returns a recording with every message replaced by fn.
func (r *Recording) MapMessages(fn MessageFunc) *Recording {
	return r.rebuild(func(d Data) Data { return d.MapMessages(fn) })
}

func (r *Recording) rebuild(fn func(Data) Data) *Recording {
	out := r.withPackets(make([]RecordedPacket, 0, len(r.Packets)))
	for _, p := range r.Packets {
		if d := fn(p.Data); d != nil {
			out.Packets = append(out.Packets, RecordedPacket{Offset: p.Offset, Data: d})
		}
	}
	return out
}

// Sorted returns a copy ordered by Offset. Packets with equal offsets keep
// their arrival order.
func (r *Recording) Sorted() *Recording {
	out := r.withPackets(append([]RecordedPacket(nil), r.Packets...))
	sort.SliceStable(out.Packets, func(i, j int) bool {
		return out.Packets[i].Offset < out.Packets[j].Offset
	})
	return out
}

// Window returns the packets with from <= Offset < to, shifted so the first
// kept offset is measured from from. A zero to means no upper bound.
func (r *Recording) Window(from, to time.Duration) *Recording {
	out := r.withPackets(nil)
	for _, p := range r.Packets {
		if p.Offset < from || (to > 0 && p.Offset >= to) {
			continue
		}
		out.Packets = append(out.Packets, RecordedPacket{Offset: p.Offset - from, Data: p.Data})
	}
	return out
}

// AddressCounts returns how many messages were captured per address.
func (r *Recording) AddressCounts() map[string]int {
	counts := make(map[string]int)
	var walk func(Data)
	walk = func(d Data) {
		switch v := d.(type) {
		case *Message:
			counts[v.Address]++
		case *Bundle:
			lo.ForEach(v.Elements, func(el Data, _ int) { walk(el) })
		}
	}
	for _, p := range r.Packets {
		walk(p.Data)
	}
	return counts
}

func (r *Recording) withPackets(packets []RecordedPacket) *Recording {
	return &Recording{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Duration:  r.Duration,
		Packets:   packets,
	}
}
