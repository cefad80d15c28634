// Package transport abstracts the bidirectional connection to a board event
// stream behind a dialer so the connection manager can be driven by fakes.
package transport

import "context"

// Handler receives connection signals. A transport delivers them from a
// single goroutine per connection, in order: at most one OnOpen, any number
// of OnMessage, optionally OnError, then exactly one OnClose.
type Handler interface {
	OnOpen()
	OnMessage(data []byte)
	OnError(err error)
	OnClose(code int, reason string)
}

// Conn is a live or pending connection handle.
type Conn interface {
	// Send writes one text frame. It fails if the connection is not open.
	Send(ctx context.Context, data []byte) error
	// Close starts a normal closure. It is safe to call more than once.
	Close() error
}

// Dialer opens connections. Dial returns as soon as the handle exists; the
// outcome of the handshake is reported through h.
type Dialer interface {
	Dial(ctx context.Context, endpoint string, h Handler) (Conn, error)
}

// Close codes surfaced through Handler.OnClose.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseAbnormal        = 1006
	ClosePolicyViolation = 1008
)
