// Package metrics exposes Prometheus counters for capture and playback.
//
// All methods are safe on a nil *Metrics, so components can take an
// optional collector without guarding every call.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vmcloop"

type Metrics struct {
	registry *prometheus.Registry

	packetsReceived  prometheus.Counter
	packetsRecorded  prometheus.Counter
	packetsDropped   prometheus.Counter
	messagesRecorded prometheus.Counter
	badDatagrams     prometheus.Counter

	packetsSent prometheus.Counter
	bytesSent   prometheus.Counter
	sendErrors  prometheus.Counter
	loops       prometheus.Counter
	playing     prometheus.Gauge
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &Metrics{
		registry:         prometheus.NewRegistry(),
		packetsReceived:  counter("capture", "packets_received_total", "Packets delivered by the listener while recording."),
		packetsRecorded:  counter("capture", "packets_recorded_total", "Packets appended to the recording."),
		packetsDropped:   counter("capture", "packets_dropped_total", "Packets discarded by the capture selector."),
		messagesRecorded: counter("capture", "messages_recorded_total", "Messages appended to the recording, counting bundle contents."),
		badDatagrams:     counter("capture", "bad_datagrams_total", "Datagrams that could not be decoded."),
		packetsSent:      counter("playback", "packets_sent_total", "Packets transmitted by the player."),
		bytesSent:        counter("playback", "bytes_sent_total", "Bytes transmitted by the player."),
		sendErrors:       counter("playback", "send_errors_total", "Packet transmissions that failed."),
		loops:            counter("playback", "loops_total", "Completed playback periods."),
		playing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "playback",
			Name:      "running",
			Help:      "1 while a player is running.",
		}),
	}
	m.registry.MustRegister(
		m.packetsReceived, m.packetsRecorded, m.packetsDropped, m.messagesRecorded, m.badDatagrams,
		m.packetsSent, m.bytesSent, m.sendErrors, m.loops, m.playing,
	)
	return m
}

// Registry returns the registry holding vmcloop's collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PacketReceived() {
	if m == nil {
		return
	}
	m.packetsReceived.Inc()
}

func (m *Metrics) PacketRecorded(messages int) {
	if m == nil {
		return
	}
	m.packetsRecorded.Inc()
	m.messagesRecorded.Add(float64(messages))
}

func (m *Metrics) PacketDropped() {
	if m == nil {
		return
	}
	m.packetsDropped.Inc()
}

func (m *Metrics) BadDatagram() {
	if m == nil {
		return
	}
	m.badDatagrams.Inc()
}

func (m *Metrics) PacketSent(bytes int) {
	if m == nil {
		return
	}
	m.packetsSent.Inc()
	m.bytesSent.Add(float64(bytes))
}

func (m *Metrics) SendFailed() {
	if m == nil {
		return
	}
	m.sendErrors.Inc()
}

func (m *Metrics) LoopCompleted() {
	if m == nil {
		return
	}
	m.loops.Inc()
}

// SetPlaying flips the running gauge.
func (m *Metrics) SetPlaying(on bool) {
	if m == nil {
		return
	}
	if on {
		m.playing.Set(1)
	} else {
		m.playing.Set(0)
	}
}
