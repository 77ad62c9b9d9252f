package osc

import (
	"net"

	"github.com/pkg/errors"

	"github.com/SmitUplenchwar2687/vmcloop/internal/errdefs"
)

// Client sends OSC datagrams to one UDP destination.
type Client struct {
	conn *net.UDPConn
}

// Dial resolves addr and connects a UDP socket to it.
func Dial(addr string) (*Client, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrTransport, "resolving %s: %v", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, a)
	if err != nil {
		return nil, errors.Wrapf(errdefs.ErrTransport, "dialing %s: %v", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Write sends b as one datagram.
func (c *Client) Write(b []byte) (int, error) {
	n, err := c.conn.Write(b)
	if err != nil {
		return n, errors.Wrapf(errdefs.ErrTransport, "sending %d bytes to %s: %v", len(b), c.conn.RemoteAddr(), err)
	}
	return n, nil
}

// Send marshals p and sends it.
func (c *Client) Send(p Packet) error {
	data, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.Write(data)
	return err
}

// RemoteAddr returns the destination address.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close releases the socket.
func (c *Client) Close() error {
	return c.conn.Close()
}
