package recorder

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/metrics"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var performer = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 39540}

func bonePacket(name string) *osc.Message {
	return osc.NewMessage(vmc.AddressBonePos, name,
		float32(0), float32(1), float32(0),
		float32(0), float32(0), float32(0), float32(1))
}

func TestRecorder_StateMachine(t *testing.T) {
	r := New(Options{Clock: clock.NewVirtualClock(epoch)})
	assert.Equal(t, StateIdle, r.State())

	_, err := r.Stop()
	assert.True(t, errdefs.IsInvalidState(err), "stop while idle")
	_, err = r.Duration()
	assert.True(t, errdefs.IsInvalidState(err), "duration while idle")

	require.NoError(t, r.Start())
	assert.True(t, errdefs.IsInvalidState(r.Start()), "double start")
	_, err = r.Duration()
	assert.True(t, errdefs.IsInvalidState(err), "duration while recording")

	_, err = r.Stop()
	require.NoError(t, err)
	assert.Equal(t, StateStopped, r.State())
	_, err = r.Stop()
	assert.True(t, errdefs.IsInvalidState(err), "double stop")
}

func TestRecorder_OffsetsAndDuration(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	r := New(Options{Clock: vc})
	require.NoError(t, r.Start())

	r.HandlePacket(osc.NewMessage(vmc.AddressTime, float32(0)), performer)
	vc.Advance(50*time.Millisecond + 700*time.Microsecond)
	r.HandlePacket(osc.NewMessage(vmc.AddressTime, float32(0.05)), performer)
	vc.Advance(70 * time.Millisecond)
	r.HandlePacket(osc.NewMessage(vmc.AddressTime, float32(0.12)), performer)
	vc.Advance(30 * time.Millisecond)

	rec, err := r.Stop()
	require.NoError(t, err)

	var offsets []time.Duration
	for _, p := range rec.Packets {
		offsets = append(offsets, p.Offset)
	}
	assert.Equal(t, []time.Duration{0, 50 * time.Millisecond, 120 * time.Millisecond}, offsets)
	assert.True(t, rec.CreatedAt.Equal(epoch))
	assert.Equal(t, 150*time.Millisecond+700*time.Microsecond, rec.Duration)

	d, err := r.Duration()
	require.NoError(t, err)
	assert.Equal(t, rec.Duration, d)
}

func TestRecorder_SelectorAndCounters(t *testing.T) {
	m := metrics.New()
	r := New(Options{
		Clock:    clock.NewVirtualClock(epoch),
		Selector: vmc.Selector(false, true),
		Metrics:  m,
	})
	require.NoError(t, r.Start())

	r.HandlePacket(bonePacket("Hips"), performer)
	r.HandlePacket(bonePacket("LeftEye"), performer)
	r.HandlePacket(osc.NewMessage("/avatar/x", int32(1)), performer)
	r.HandlePacket(&osc.Bundle{Timetag: osc.Immediately, Elements: []osc.Packet{
		bonePacket("Spine"),
		bonePacket("RightEye"),
		osc.NewMessage(vmc.AddressTime, float32(1)),
	}}, performer)
	r.HandlePacket(&osc.Bundle{Timetag: osc.Immediately, Elements: []osc.Packet{
		bonePacket("Chest"),
		osc.NewMessage(vmc.AddressRootPos, "root"),
	}}, performer)

	s := r.Summary()
	assert.Equal(t, "recording", s.State)
	assert.Equal(t, 5, s.PacketsReceived)
	assert.Equal(t, 2, s.PacketsRecorded)
	assert.Equal(t, 3, s.MessagesRecorded)
	assert.Equal(t, 3, s.PacketsDropped)

	rec, err := r.Stop()
	require.NoError(t, err)
	require.Equal(t, 2, rec.PacketCount())
	assert.Equal(t, s.MessagesRecorded, rec.MessageCount())

	b, ok := rec.Packets[1].Data.(*recording.Bundle)
	require.True(t, ok)
	require.Len(t, b.Elements, 2)
	assert.Equal(t, "RightEye", b.Elements[0].(*recording.Message).Arguments[0])
}

func TestRecorder_BadDataDoesNotAbort(t *testing.T) {
	r := New(Options{Clock: clock.NewVirtualClock(epoch)})
	require.NoError(t, r.Start())

	_, decodeErr := osc.ParsePacket([]byte("junk"))
	r.HandleBadData([]byte("junk"), performer, decodeErr)
	r.HandlePacket(osc.NewMessage(vmc.AddressTime, float32(1)), performer)
	r.HandleBadData(nil, nil, errors.Wrap(errdefs.ErrDecode, "short"))

	s := r.Summary()
	assert.Equal(t, 2, s.BadDatagrams)
	assert.Equal(t, 1, s.PacketsRecorded)
	assert.Equal(t, StateRecording, r.State())
}

func TestRecorder_IgnoresPacketsOutsideRecording(t *testing.T) {
	r := New(Options{Clock: clock.NewVirtualClock(epoch)})
	r.HandlePacket(osc.NewMessage("/VMC/Ext/T"), performer)

	require.NoError(t, r.Start())
	rec, err := r.Stop()
	require.NoError(t, err)
	r.HandlePacket(osc.NewMessage("/VMC/Ext/T"), performer)

	assert.Zero(t, rec.PacketCount())
	assert.Equal(t, 2, r.Summary().Ignored)
}

func TestRecorder_RestartClearsPreviousPackets(t *testing.T) {
	vc := clock.NewVirtualClock(epoch)
	r := New(Options{Clock: vc})

	require.NoError(t, r.Start())
	r.HandlePacket(osc.NewMessage("/VMC/a"), performer)
	first, err := r.Stop()
	require.NoError(t, err)

	vc.Advance(time.Second)
	require.NoError(t, r.Start())
	assert.Zero(t, r.Summary().PacketsReceived)
	second, err := r.Stop()
	require.NoError(t, err)

	assert.Equal(t, 1, first.PacketCount(), "handed-off recording is not reset")
	assert.Zero(t, second.PacketCount())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestRecorder_ConcurrentDelivery(t *testing.T) {
	r := New(Options{Clock: clock.NewVirtualClock(epoch)})
	require.NoError(t, r.Start())

	const senders, each = 8, 250
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				r.HandlePacket(&osc.Bundle{Timetag: osc.Immediately, Elements: []osc.Packet{
					osc.NewMessage("/VMC/a"), osc.NewMessage("/VMC/b"),
				}}, performer)
			}
		}()
	}
	wg.Wait()

	rec, err := r.Stop()
	require.NoError(t, err)
	assert.Equal(t, senders*each, rec.PacketCount())
	assert.Equal(t, 2*senders*each, rec.MessageCount())
	assert.Equal(t, 2*senders*each, r.Summary().MessagesRecorded)
}

func TestRecorder_Observer(t *testing.T) {
	var events []Event
	r := New(Options{
		Clock:    clock.NewVirtualClock(epoch),
		Observer: func(e Event) { events = append(events, e) },
	})
	require.NoError(t, r.Start())

	r.HandlePacket(osc.NewMessage(vmc.AddressTime, float32(1)), performer)
	r.HandlePacket(&osc.Bundle{Elements: []osc.Packet{bonePacket("Hips"), bonePacket("Neck")}}, nil)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Time: epoch, Kind: "message", Address: vmc.AddressTime, Messages: 1, From: performer.String()}, events[0])
	assert.Equal(t, "bundle", events[1].Kind)
	assert.Equal(t, vmc.AddressBonePos, events[1].Address)
	assert.Equal(t, 2, events[1].Messages)
	assert.Empty(t, events[1].From)
}

func TestSession_Loopback(t *testing.T) {
	r := New(Options{Selector: vmc.Selector(false, false)})
	s, err := StartSession(context.Background(), "127.0.0.1:0", r)
	require.NoError(t, err)

	c, err := osc.Dial(s.Addr().String())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(osc.NewMessage(vmc.AddressAvailable, int32(1))))
	require.NoError(t, c.Send(osc.NewMessage("/not/vmc")))
	_, err = c.Write([]byte{0xde, 0xad})
	require.NoError(t, err)
	require.NoError(t, c.Send(bonePacket("Hips")))

	require.Eventually(t, func() bool {
		s := r.Summary()
		return s.PacketsReceived == 3 && s.BadDatagrams == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec, err := s.Stop()
	require.NoError(t, err)
	assert.Equal(t, 2, rec.PacketCount())

	again, err := s.Stop()
	require.NoError(t, err)
	assert.Same(t, rec, again)

	select {
	case <-s.Done():
	default:
		t.Fatal("listener still serving after Stop")
	}
}

func TestStartSession_AlreadyRecording(t *testing.T) {
	r := New(Options{})
	require.NoError(t, r.Start())

	_, err := StartSession(context.Background(), "127.0.0.1:0", r)
	assert.True(t, errdefs.IsInvalidState(err))
}
