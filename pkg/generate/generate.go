// Package generate synthesizes VMC performer streams for demos and tests.
package generate

import (
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

const (
	// PatternSteady delivers every frame exactly on its tick.
	PatternSteady = "steady"
	// PatternJitter shifts each frame by up to a quarter frame either way.
	PatternJitter = "jitter"
	// PatternBurst delivers frames in groups, as a congested link would.
	PatternBurst = "burst"
)

// burstSize is how many frames a PatternBurst group holds.
const burstSize = 4

// DefaultBones is the body bone set used when Options.Bones is empty. The
// eye bones are always added.
var DefaultBones = []string{
	"Hips",
	"Spine",
	"Chest",
	"Neck",
	"Head",
	"LeftUpperArm",
	"RightUpperArm",
}

// Options controls how a performer stream is generated.
type Options struct {
	FPS      int
	Duration time.Duration
	Pattern  string
	Bones    []string
	Start    time.Time
	Seed     int64
	// Bundled sends each frame as one bundle. Otherwise every message is
	// its own packet.
	Bundled bool
}

// DefaultOptions returns defaults aligned with vmcloop CLI behavior.
func DefaultOptions() Options {
	return Options{
		FPS:      60,
		Duration: 5 * time.Second,
		Pattern:  PatternSteady,
		Bundled:  true,
	}
}

// Performer creates a recording of a performer idling in front of the
// camera: a swaying root, a nodding head, darting eyes and a periodic blink.
// Every frame carries /VMC/Ext/OK and /VMC/Ext/T.
func Performer(opts Options) (*recording.Recording, error) {
	if opts.FPS <= 0 {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "fps must be positive, got %d", opts.FPS)
	}
	if opts.Duration <= 0 {
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "duration must be positive, got %s", opts.Duration)
	}
	switch opts.Pattern {
	case "":
		opts.Pattern = PatternSteady
	case PatternSteady, PatternJitter, PatternBurst:
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument,
			"unknown pattern %q, must be one of: steady, jitter, burst", opts.Pattern)
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now().Truncate(time.Second)
	}
	if len(opts.Bones) == 0 {
		opts.Bones = DefaultBones
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	frame := time.Second / time.Duration(opts.FPS)
	frames := int(opts.Duration / frame)
	if frames == 0 {
		frames = 1
	}

	rec := recording.New(opts.Start)
	rec.Duration = opts.Duration
	eyes := &gaze{rng: rng}

	for i := 0; i < frames; i++ {
		at := time.Duration(i) * frame
		msgs := performerFrame(at, opts.Bones, eyes)
		offset := deliveryOffset(rng, opts.Pattern, i, frame, frames).Truncate(time.Millisecond)

		if opts.Bundled {
			rec.Append(offset, recording.NewBundle(osc.NewTimetag(opts.Start.Add(at)), msgs...))
			continue
		}
		for _, m := range msgs {
			rec.Append(offset, m)
		}
	}
	return rec, nil
}

func deliveryOffset(rng *rand.Rand, pattern string, i int, frame time.Duration, frames int) time.Duration {
	at := time.Duration(i) * frame
	switch pattern {
	case PatternJitter:
		shift := time.Duration(rng.Int63n(int64(frame/2)+1)) - frame/4
		if at+shift < 0 {
			return 0
		}
		return at + shift
	case PatternBurst:
		last := (i/burstSize+1)*burstSize - 1
		if last >= frames {
			last = frames - 1
		}
		return time.Duration(last) * frame
	default:
		return at
	}
}

func performerFrame(at time.Duration, bones []string, eyes *gaze) []recording.Data {
	t := at.Seconds()
	msgs := []recording.Data{
		recording.NewMessage(vmc.AddressAvailable, int32(1)),
		recording.NewMessage(vmc.AddressTime, float32(t)),
		transform(vmc.AddressRootPos, "root",
			vec3{0.05 * sin(0.25, t), 0, 0.02 * sin(0.1, t)},
			yaw(0.05*sin(0.2, t))),
	}
	for _, b := range bones {
		rot := identity
		switch b {
		case "Head":
			rot = pitch(0.15 * sin(0.5, t))
		case "Neck":
			rot = pitch(0.05 * sin(0.5, t))
		case "Spine", "Chest":
			rot = roll(0.03 * sin(0.25, t))
		}
		msgs = append(msgs, transform(vmc.AddressBonePos, b, vec3{}, rot))
	}

	look := eyes.at(t)
	msgs = append(msgs,
		transform(vmc.AddressBonePos, vmc.BoneLeftEye, vec3{}, look),
		transform(vmc.AddressBonePos, vmc.BoneRightEye, vec3{}, look),
		recording.NewMessage(vmc.AddressBlendVal, "Blink", float32(blink(t))),
		recording.NewMessage(vmc.AddressBlendAply),
	)
	return msgs
}

type vec3 [3]float64

// quat is x, y, z, w.
type quat [4]float64

var identity = quat{0, 0, 0, 1}

func pitch(a float64) quat { return quat{math.Sin(a / 2), 0, 0, math.Cos(a / 2)} }
func yaw(a float64) quat   { return quat{0, math.Sin(a / 2), 0, math.Cos(a / 2)} }
func roll(a float64) quat  { return quat{0, 0, math.Sin(a / 2), math.Cos(a / 2)} }

func sin(hz, t float64) float64 { return math.Sin(2 * math.Pi * hz * t) }

func transform(addr, name string, p vec3, q quat) *recording.Message {
	return recording.NewMessage(addr, name,
		float32(p[0]), float32(p[1]), float32(p[2]),
		float32(q[0]), float32(q[1]), float32(q[2]), float32(q[3]))
}

// blink closes the eyes for 150ms every 3s.
func blink(t float64) float64 {
	if math.Mod(t, 3) < 0.15 {
		return 1
	}
	return 0
}

// gaze holds a direction for a random 0.4-1.2s, then saccades.
type gaze struct {
	rng   *rand.Rand
	until float64
	dir   quat
}

func (g *gaze) at(t float64) quat {
	if t >= g.until {
		g.until = t + 0.4 + 0.8*g.rng.Float64()
		y := (g.rng.Float64() - 0.5) * 0.4
		x := (g.rng.Float64() - 0.5) * 0.2
		g.dir = quat{math.Sin(x / 2), math.Sin(y / 2), 0, math.Cos(x/2) * math.Cos(y/2)}
	}
	return g.dir
}
