package clock

import (
	"testing"
	"time"
)

func TestClockImplementations(t *testing.T) {
	var _ Clock = NewRealClock()
	var _ Clock = NewVirtualClock(time.Now())
}

func TestVirtualClockStep(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vc := NewVirtualClock(start)
	ch := vc.After(time.Second)

	if _, ok := vc.Step(); !ok {
		t.Fatal("Step() reported no waiters")
	}
	select {
	case <-ch:
	default:
		t.Fatal("After channel did not fire on Step()")
	}
}
