package vmc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func bone(name string) *recording.Message {
	return recording.NewMessage(AddressBonePos, name,
		float32(0), float32(0), float32(0),
		float32(0), float32(0), float32(0), float32(1))
}

func TestIsVMC(t *testing.T) {
	assert.True(t, IsVMC(recording.NewMessage(AddressTime, float32(1))))
	assert.True(t, IsVMC(recording.NewMessage("/VMC/Thru/Anything")))
	assert.False(t, IsVMC(recording.NewMessage("/avatar/parameters/x")))
}

func TestGazeOnly(t *testing.T) {
	tests := []struct {
		name string
		msg  *recording.Message
		want bool
	}{
		{"hips bone excluded", bone("Hips"), false},
		{"left eye kept", bone(BoneLeftEye), true},
		{"right eye kept", bone(BoneRightEye), true},
		{"root excluded", recording.NewMessage(AddressRootPos, "root"), false},
		{"bone without name excluded", recording.NewMessage(AddressBonePos), false},
		{"bone with non-string name excluded", recording.NewMessage(AddressBonePos, int32(3)), false},
		{"timing passes", recording.NewMessage(AddressTime, float32(1)), true},
		{"blend passes", recording.NewMessage(AddressBlendVal, "A", float32(1)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GazeOnly(tt.msg))
		})
	}
}

func TestSelector(t *testing.T) {
	other := recording.NewMessage("/other")
	hips := bone("Hips")
	eye := bone(BoneLeftEye)

	assert.Nil(t, Selector(true, false))

	vmcOnly := Selector(false, false)
	assert.False(t, vmcOnly(other))
	assert.True(t, vmcOnly(hips))

	gaze := Selector(false, true)
	assert.False(t, gaze(hips))
	assert.True(t, gaze(eye))
	assert.False(t, gaze(other))

	gazeAll := Selector(true, true)
	assert.True(t, gazeAll(other))
	assert.False(t, gazeAll(hips))
}

func TestTimingClock_Elapsed(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	tc := NewTimingClock(vc)

	assert.Zero(t, tc.Elapsed(), "zero before Begin")

	tc.Begin(vc.Now())
	vc.Advance(1500 * time.Millisecond)
	assert.Equal(t, float32(1.5), tc.Elapsed())
}

func TestReplaceTiming(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	tc := NewTimingClock(vc)

	rec := recording.New(epoch)
	rec.Append(0, recording.NewMessage(AddressTime, float32(123.4)))
	rec.Append(10*time.Millisecond, recording.NewBundle(osc.Immediately,
		bone("Hips"),
		recording.NewMessage(AddressTime, float32(123.5)),
	))

	got := ReplaceTiming(rec, tc)
	require.Equal(t, 2, got.PacketCount())
	assert.Equal(t, rec.MessageCount(), got.MessageCount())
	assert.True(t, got.Packets[0].Data.IsLive())
	assert.True(t, got.Packets[1].Data.IsLive())
	assert.False(t, rec.Packets[0].Data.IsLive(), "source recording untouched")

	tc.Begin(vc.Now())
	var last float32 = -1
	for i := 0; i < 5; i++ {
		vc.Advance(120 * time.Millisecond)
		m := got.Packets[0].Data.Packet().(*osc.Message)
		require.Equal(t, AddressTime, m.Address)
		v := m.Arguments[0].(float32)
		assert.GreaterOrEqual(t, v, last, "elapsed time never decreases")
		assert.NotEqual(t, float32(123.4), v)
		last = v
	}
	assert.InDelta(t, 0.6, last, 1e-6)
}
