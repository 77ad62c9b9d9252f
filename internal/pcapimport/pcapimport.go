// Package pcapimport builds recordings from packet capture files, so a
// session sniffed with tcpdump or Wireshark can be looped like a live one.
package pcapimport

import (
	"bufio"
	"bytes"
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
	"github.com/SmitUplenchwar2687/vmcloop/internal/logging"
	"github.com/SmitUplenchwar2687/vmcloop/internal/osc"
	"github.com/SmitUplenchwar2687/vmcloop/internal/recording"
)

// pcapng section header block type.
var ngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// Options selects which datagrams to import.
type Options struct {
	// Port keeps only datagrams sent to this UDP port. Zero keeps all.
	Port int
	// Selector picks the messages to keep. Nil keeps everything.
	Selector recording.Predicate
	Logger   *zap.Logger
}

// Stats counts what the import saw.
type Stats struct {
	Frames   int `json:"frames"`
	UDP      int `json:"udp"`
	Matched  int `json:"matched"`
	Imported int `json:"imported"`
	BadData  int `json:"bad_data"`
	Filtered int `json:"filtered"`
}

// Import reads a pcap or pcapng stream. Offsets are measured from the first
// matching datagram and truncated to milliseconds, like a live capture.
func Import(r io.Reader, opts Options) (*recording.Recording, Stats, error) {
	log := logging.OrNop(opts.Logger).Named("pcap")
	var st Stats

	src, err := packetSource(r)
	if err != nil {
		return nil, st, err
	}

	var (
		rec   *recording.Recording
		first time.Time
		last  time.Time
	)
	for {
		pkt, err := src.NextPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, st, errors.Wrapf(errdefs.ErrDecode, "reading capture: %v", err)
		}
		st.Frames++

		udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
		if !ok {
			continue
		}
		st.UDP++
		if opts.Port != 0 && int(udp.DstPort) != opts.Port {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}
		st.Matched++

		ts := pkt.Metadata().Timestamp
		if rec == nil {
			first = ts
			rec = recording.New(ts)
		}
		last = ts

		p, err := osc.ParsePacket(udp.Payload)
		if err != nil {
			st.BadData++
			log.Debug("skipping undecodable datagram", zap.Time("ts", ts), zap.Error(err))
			continue
		}
		d, err := recording.FromPacket(p)
		if err != nil {
			st.BadData++
			continue
		}
		if opts.Selector != nil {
			if d = d.Filter(opts.Selector); d == nil {
				st.Filtered++
				continue
			}
		}

		offset := ts.Sub(first)
		if offset < 0 {
			// Captures can be slightly out of order across interfaces.
			offset = 0
		}
		rec.Append(offset.Truncate(time.Millisecond), d)
		st.Imported++
	}

	if rec == nil {
		return nil, st, errors.Wrap(errdefs.ErrInvalidArgument, "capture holds no matching UDP datagrams")
	}
	rec.Duration = last.Sub(first)
	log.Info("capture imported",
		zap.Int("frames", st.Frames),
		zap.Int("imported", st.Imported),
		zap.Int("bad_data", st.BadData),
		zap.Duration("duration", rec.Duration),
	)
	return rec, st, nil
}

func packetSource(r io.Reader) (*gopacket.PacketSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrDecode, "reading capture header: %v", err)
	}

	var src *gopacket.PacketSource
	if bytes.Equal(magic, ngMagic) {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, errors.Wrapf(errdefs.ErrDecode, "not a pcapng file: %v", err)
		}
		src = gopacket.NewPacketSource(ng, ng.LinkType())
	} else {
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return nil, errors.Wrapf(errdefs.ErrDecode, "not a pcap file: %v", err)
		}
		src = gopacket.NewPacketSource(pr, pr.LinkType())
	}
	src.Lazy = true
	return src, nil
}
