// Package transporttest provides a transport that tests drive by hand.
package transporttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/transport"
)

// Dialer records every Dial and hands out Conns whose signals the test emits
// synchronously through Conn.Open, Conn.Message, Conn.Fail and Conn.Drop.
type Dialer struct {
	mu    sync.Mutex
	conns []*Conn
	// Err, when set, is returned by Dial instead of a connection.
	Err error
	// OnDial, when set, runs after each Conn is recorded and before Dial
	// returns. Use it to script servers that open or close immediately.
	OnDial func(c *Conn)
}

func (d *Dialer) Dial(_ context.Context, endpoint string, h transport.Handler) (transport.Conn, error) {
	d.mu.Lock()
	if d.Err != nil {
		err := d.Err
		d.mu.Unlock()
		return nil, err
	}
	c := &Conn{Endpoint: endpoint, handler: h}
	d.conns = append(d.conns, c)
	hook := d.OnDial
	d.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	return c, nil
}

// Dials returns the number of Dial calls that produced a connection.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// Last returns the most recent connection, or nil.
func (d *Dialer) Last() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// Conn returns the i-th connection (0-based).
func (d *Dialer) Conn(i int) *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

// Conn is a scripted connection.
type Conn struct {
	Endpoint string
	handler  transport.Handler

	mu      sync.Mutex
	open    bool
	closed  bool
	sent    [][]byte
	SendErr error
}

// Open emits the open signal.
func (c *Conn) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	c.handler.OnOpen()
}

// Message emits one inbound frame.
func (c *Conn) Message(data string) {
	c.handler.OnMessage([]byte(data))
}

// Error emits an error without closing.
func (c *Conn) Error(err error) {
	c.handler.OnError(err)
}

// Fail emits an error followed by an abnormal close, the way browsers and
// network failures report a dropped socket.
func (c *Conn) Fail(err error) {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.handler.OnError(fmt.Errorf("transporttest: %w: %w", domain.ErrTransport, err))
	c.handler.OnClose(transport.CloseAbnormal, "")
}

// Drop emits a close with the given code.
func (c *Conn) Drop(code int, reason string) {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	c.handler.OnClose(code, reason)
}

func (c *Conn) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	if !c.open || c.closed {
		return fmt.Errorf("transporttest: %w", domain.ErrNotConnected)
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

// Close marks the connection closed. It does not emit OnClose; a real
// transport would, and the manager must ignore it either way.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.open = false
	return nil
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Sent returns copies of the frames written so far.
func (c *Conn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	for i, b := range c.sent {
		out[i] = string(b)
	}
	return out
}
