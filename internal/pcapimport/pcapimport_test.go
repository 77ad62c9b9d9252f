package pcapimport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
	"github.com/SmitUplenchwar2687/vmcloop/internal/vmc"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type datagram struct {
	at      time.Duration
	dstPort uint16
	payload []byte
}

func oscBytes(t *testing.T, addr string, args ...interface{}) []byte {
	t.Helper()
	b, err := osc.NewMessage(addr, args...).MarshalBinary()
	require.NoError(t, err)
	return b
}

// writeCapture serializes datagrams as Ethernet/IPv4/UDP frames.
func writeCapture(t *testing.T, dgs []datagram) *bytes.Buffer {
	t.Helper()
	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	for _, d := range dgs {
		eth := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
			DstMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 6},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    net.IPv4(192, 168, 1, 10),
			DstIP:    net.IPv4(192, 168, 1, 20),
		}
		udp := &layers.UDP{SrcPort: 50000, DstPort: layers.UDPPort(d.dstPort)}
		require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
		require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(d.payload)))

		data := buf.Bytes()
		require.NoError(t, w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     epoch.Add(d.at),
			CaptureLength: len(data),
			Length:        len(data),
		}, data))
	}
	return &out
}

func TestImport(t *testing.T) {
	capture := writeCapture(t, []datagram{
		{at: 0, dstPort: 39539, payload: oscBytes(t, vmc.AddressTime, float32(1))},
		{at: 16500 * time.Microsecond, dstPort: 39539, payload: oscBytes(t, vmc.AddressBonePos, "Head")},
		{at: 20 * time.Millisecond, dstPort: 5353, payload: oscBytes(t, "/mdns")},
		{at: 33 * time.Millisecond, dstPort: 39539, payload: []byte("garbage")},
		{at: 50 * time.Millisecond, dstPort: 39539, payload: oscBytes(t, "/other", int32(1))},
	})

	rec, st, err := Import(capture, Options{Port: 39539})
	require.NoError(t, err)

	assert.Equal(t, Stats{Frames: 5, UDP: 5, Matched: 4, Imported: 3, BadData: 1}, st)
	require.Equal(t, 3, rec.PacketCount())
	assert.True(t, rec.CreatedAt.Equal(epoch))
	assert.Equal(t, 50*time.Millisecond, rec.Duration)
	assert.Equal(t, []time.Duration{0, 16 * time.Millisecond, 50 * time.Millisecond},
		[]time.Duration{rec.Packets[0].Offset, rec.Packets[1].Offset, rec.Packets[2].Offset})

	m, ok := rec.Packets[1].Data.(*recording.Message)
	require.True(t, ok)
	assert.Equal(t, vmc.AddressBonePos, m.Address)
	assert.Equal(t, []interface{}{"Head"}, m.Arguments)
}

func TestImport_Selector(t *testing.T) {
	capture := writeCapture(t, []datagram{
		{at: 0, dstPort: 39539, payload: oscBytes(t, vmc.AddressTime, float32(1))},
		{at: 10 * time.Millisecond, dstPort: 39539, payload: oscBytes(t, "/other")},
	})

	rec, st, err := Import(capture, Options{Selector: vmc.Selector(false, false)})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.PacketCount())
	assert.Equal(t, 1, st.Filtered)
}

func TestImport_NoMatches(t *testing.T) {
	capture := writeCapture(t, []datagram{
		{at: 0, dstPort: 5353, payload: oscBytes(t, "/mdns")},
	})
	_, _, err := Import(capture, Options{Port: 39539})
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestImport_NotACapture(t *testing.T) {
	_, _, err := Import(bytes.NewReader([]byte("this is not a pcap file")), Options{})
	assert.True(t, errdefs.IsDecode(err))

	_, _, err = Import(bytes.NewReader(nil), Options{})
	assert.True(t, errdefs.IsDecode(err))
}
