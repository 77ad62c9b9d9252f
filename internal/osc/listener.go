package osc

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

// Handler receives decoded packets from a Listener. Calls are made from the
// serving goroutine one at a time, in arrival order.
type Handler interface {
	HandlePacket(p Packet, from net.Addr)
	// HandleBadData receives datagrams that failed to decode. The listener
	// keeps serving afterwards.
	HandleBadData(data []byte, from net.Addr, err error)
}

// Listener reads OSC datagrams from a bound UDP port.
type Listener struct {
	conn net.PacketConn

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Listen binds a UDP socket on addr, e.g. ":39540".
func Listen(addr string) (*Listener, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrTransport, "listening on %s: %v", addr, err)
	}
	return NewListener(conn), nil
}

// NewListener wraps an already bound packet connection.
func NewListener(conn net.PacketConn) *Listener {
	return &Listener{
		conn:   conn,
		closed: make(chan struct{}),
	}
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Serve reads datagrams until ctx is cancelled or Close is called, in which
// case it returns nil. Any other read failure is returned as a transport
// error.
func (l *Listener) Serve(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	buf := make([]byte, MaxPacketSize)
	for {
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			if l.isClosed() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return errors.Wrapf(errdefs.ErrTransport, "reading from %s: %v", l.Addr(), err)
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		p, err := ParsePacket(data)
		if err != nil {
			h.HandleBadData(data, from, err)
			continue
		}
		h.HandlePacket(p, from)
	}
}

// Close stops Serve and releases the socket. It is idempotent.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.closeErr = l.conn.Close()
	})
	return l.closeErr
}

func (l *Listener) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}
