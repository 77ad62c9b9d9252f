package server

import (
	"github.com/SmitUplenchwar2687/vmcloop/internal/clock"
	internalserver "github.com/SmitUplenchwar2687/vmcloop/internal/server"
)

// Server is the vmcloop status server.
type Server = internalserver.Server

// Options configures optional server features.
type Options = internalserver.Options

// StatusFunc returns a JSON-encodable snapshot of one component.
type StatusFunc = internalserver.StatusFunc

// Hub manages WebSocket clients and broadcasts capture and playback events.
type Hub = internalserver.Hub

// DashboardHTML is the embedded single-page dashboard.
const DashboardHTML = internalserver.DashboardHTML

// New creates a status server for addr.
func New(addr string, opts Options) *Server {
	return internalserver.New(addr, opts)
}

// Throttle thins out an event stream with one token bucket per key.
type Throttle = internalserver.Throttle

// NewThrottle creates a throttle passing rate events per second for each
// key. A nil clock means the real clock.
func NewThrottle(rate, burst int, c clock.Clock) *Throttle {
	return internalserver.NewThrottle(rate, burst, c)
}
