package clock

import "time"

// Clock abstracts time for the recorder and the playback scheduler so both
// can run against a VirtualClock in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
	// After returns a channel that receives the current time after duration d.
	After(d time.Duration) <-chan time.Time
}

// RealClock delegates to the standard time package. Its Now carries a
// monotonic reading, so offsets taken with Since are immune to wall clock
// steps.
type RealClock struct{}

func NewRealClock() *RealClock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// Default returns clk, or a RealClock when clk is nil.
func Default(clk Clock) Clock {
	if clk == nil {
		return NewRealClock()
	}
	return clk
}
