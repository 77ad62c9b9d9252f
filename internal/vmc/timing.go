package vmc

import (
	"sync"
	"time"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// TimingClock measures elapsed playback time for the regenerated
// /VMC/Ext/T message. Its only state is the playback start instant.
type TimingClock struct {
	clk clock.Clock

	mu    sync.RWMutex
	start time.Time
}

// NewTimingClock returns a TimingClock reading clk. A nil clk uses real time.
func NewTimingClock(clk clock.Clock) *TimingClock {
	return &TimingClock{clk: clock.Default(clk)}
}

// Begin anchors elapsed time at t. It matches the replay OnStart hook.
func (tc *TimingClock) Begin(t time.Time) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.start = t
}

// Elapsed returns seconds since Begin, or 0 if Begin has not been called.
func (tc *TimingClock) Elapsed() float32 {
	tc.mu.RLock()
	start := tc.start
	tc.mu.RUnlock()

	if start.IsZero() {
		return 0
	}
	return float32(tc.clk.Since(start).Seconds())
}

// Message returns a live timing message that reads tc each time it is sent.
func (tc *TimingClock) Message() *recording.Message {
	return recording.NewLiveMessage(AddressTime, func() interface{} { return tc.Elapsed() })
}

// ReplaceTiming returns a copy of rec where every recorded timing message is
// swapped for tc's live message.
func ReplaceTiming(rec *recording.Recording, tc *TimingClock) *recording.Recording {
	live := tc.Message()
	return rec.MapMessages(func(m *recording.Message) *recording.Message {
		if m.Address == AddressTime {
			return live
		}
		return m
	})
}
