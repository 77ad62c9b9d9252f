package recorder

import (
	"context"
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/vmcloop/pkg/clock"
)

func TestSessionStop(t *testing.T) {
	vc := clock.NewVirtualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec := New(Options{Clock: vc})

	sess, err := StartSession(context.Background(), "127.0.0.1:0", rec)
	if err != nil {
		t.Fatalf("StartSession() failed: %v", err)
	}
	vc.Advance(time.Second)

	got, err := sess.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if got.Duration != time.Second {
		t.Fatalf("Duration = %s, want 1s", got.Duration)
	}
	if got.PacketCount() != 0 {
		t.Fatalf("PacketCount() = %d, want 0", got.PacketCount())
	}
}
