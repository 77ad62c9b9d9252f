package generate

import (
	"testing"
	"time"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPerformer_AllPatterns(t *testing.T) {
	for _, p := range []string{PatternSteady, PatternJitter, PatternBurst} {
		t.Run(p, func(t *testing.T) {
			rec, err := Performer(Options{
				FPS:      30,
				Duration: time.Second,
				Pattern:  p,
				Start:    start,
				Seed:     7,
				Bundled:  true,
			})
			if err != nil {
				t.Fatalf("Performer() error = %v", err)
			}
			if rec.PacketCount() != 30 {
				t.Fatalf("PacketCount() = %d, want 30", rec.PacketCount())
			}
			// OK, T, root, 7 bones, 2 eyes, blend value, blend apply.
			if got, want := rec.MessageCount(), 30*14; got != want {
				t.Fatalf("MessageCount() = %d, want %d", got, want)
			}
			for _, pkt := range rec.Packets {
				if pkt.Offset < 0 || pkt.Offset >= time.Second {
					t.Fatalf("offset %s out of range", pkt.Offset)
				}
				if pkt.Offset%time.Millisecond != 0 {
					t.Fatalf("offset %s is not whole milliseconds", pkt.Offset)
				}
			}
		})
	}
}

func TestPerformer_SteadyTicks(t *testing.T) {
	rec, err := Performer(Options{FPS: 50, Duration: 100 * time.Millisecond, Start: start, Seed: 1})
	if err != nil {
		t.Fatalf("Performer() error = %v", err)
	}

	// Unbundled: 14 messages per frame, all at the frame's tick.
	if rec.PacketCount() != 5*14 {
		t.Fatalf("PacketCount() = %d, want %d", rec.PacketCount(), 5*14)
	}
	if got := rec.Packets[14].Offset; got != 20*time.Millisecond {
		t.Fatalf("second frame offset = %s, want 20ms", got)
	}
	if got := rec.MaxOffset(); got != 80*time.Millisecond {
		t.Fatalf("MaxOffset() = %s, want 80ms", got)
	}
}

func TestPerformer_BurstGroupsFrames(t *testing.T) {
	rec, err := Performer(Options{FPS: 10, Duration: time.Second, Pattern: PatternBurst, Start: start, Seed: 1, Bundled: true})
	if err != nil {
		t.Fatalf("Performer() error = %v", err)
	}
	want := []time.Duration{300, 300, 300, 300, 700, 700, 700, 700, 900, 900}
	for i, pkt := range rec.Packets {
		if pkt.Offset != want[i]*time.Millisecond {
			t.Fatalf("frame %d offset = %s, want %dms", i, pkt.Offset, want[i])
		}
	}
}

func TestPerformer_SeedIsDeterministic(t *testing.T) {
	opts := Options{FPS: 30, Duration: time.Second, Pattern: PatternJitter, Start: start, Seed: 42, Bundled: true}
	a, err := Performer(opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Performer(opts)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Packets {
		if a.Packets[i].Offset != b.Packets[i].Offset {
			t.Fatalf("packet %d offsets differ: %s vs %s", i, a.Packets[i].Offset, b.Packets[i].Offset)
		}
	}
}

func TestPerformer_GazeOnlyKeepsEyes(t *testing.T) {
	rec, err := Performer(Options{FPS: 10, Duration: time.Second, Start: start, Seed: 3})
	if err != nil {
		t.Fatal(err)
	}
	counts := rec.Filter(vmc.GazeOnly).AddressCounts()
	if counts[vmc.AddressBonePos] != 20 {
		t.Fatalf("bone messages after gaze filter = %d, want 20", counts[vmc.AddressBonePos])
	}
	if counts[vmc.AddressRootPos] != 0 {
		t.Fatalf("root messages should be dropped, got %d", counts[vmc.AddressRootPos])
	}
	if counts[vmc.AddressTime] != 10 {
		t.Fatalf("timing messages = %d, want 10", counts[vmc.AddressTime])
	}
}

func TestPerformer_EncodesOnTheWire(t *testing.T) {
	rec, err := Performer(Options{FPS: 5, Duration: time.Second, Start: start, Seed: 3, Bundled: true})
	if err != nil {
		t.Fatal(err)
	}
	for i, pkt := range rec.Packets {
		if _, err := recording.WireBytes(pkt.Data); err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
	}
}

func TestPerformer_InvalidOptions(t *testing.T) {
	for name, opts := range map[string]Options{
		"zero fps":        {FPS: 0, Duration: time.Second},
		"zero duration":   {FPS: 30},
		"unknown pattern": {FPS: 30, Duration: time.Second, Pattern: "ramp"},
	} {
		if _, err := Performer(opts); !errdefs.IsInvalidArgument(err) {
			t.Errorf("%s: err = %v, want invalid argument", name, err)
		}
	}
}
