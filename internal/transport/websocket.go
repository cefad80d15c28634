package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/dilenshah23/collaboration-board/internal/domain"
)

// WebSocketOptions tunes the coder/websocket backed dialer. Zero values fall
// back to the defaults below.
type WebSocketOptions struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64
	HTTPClient       *http.Client
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultReadLimit        = 1 << 20
)

// WebSocketDialer dials board event streams over WebSocket.
type WebSocketDialer struct {
	opts   WebSocketOptions
	logger zerolog.Logger
}

// NewWebSocketDialer creates a dialer.
func NewWebSocketDialer(opts WebSocketOptions, logger zerolog.Logger) *WebSocketDialer {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	return &WebSocketDialer{opts: opts, logger: logger}
}

// Dial starts the handshake in the background and returns the pending handle.
// Cancelling ctx tears the connection down.
func (d *WebSocketDialer) Dial(ctx context.Context, endpoint string, h Handler) (Conn, error) {
	if h == nil {
		return nil, errors.New("transport.WebSocketDialer.Dial: nil handler")
	}

	connCtx, cancel := context.WithCancel(ctx)
	c := &wsConn{
		opts:   d.opts,
		logger: d.logger,
		cancel: cancel,
	}
	go c.run(connCtx, endpoint, h)

	return c, nil
}

type wsConn struct {
	opts   WebSocketOptions
	logger zerolog.Logger
	cancel context.CancelFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (c *wsConn) run(ctx context.Context, endpoint string, h Handler) {
	dialCtx, cancelDial := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	conn, resp, err := websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{
		HTTPClient: c.opts.HTTPClient,
	})
	cancelDial()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			h.OnClose(CloseGoingAway, "")
			return
		}
		if !c.isClosed() {
			h.OnError(fmt.Errorf("transport: dial: %w: %w", domain.ErrTransport, err))
		}
		h.OnClose(CloseAbnormal, "")
		return
	}
	conn.SetReadLimit(c.opts.ReadLimit)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.CloseNow()
		h.OnClose(CloseNormal, "")
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Debug().Msg("websocket connected")
	h.OnOpen()

	for {
		_, data, readErr := conn.Read(ctx)
		if readErr != nil {
			code, reason := closeInfo(readErr)
			if code == CloseAbnormal && ctx.Err() != nil {
				code = CloseGoingAway
			}
			if code == CloseAbnormal && !c.isClosed() {
				h.OnError(fmt.Errorf("transport: read: %w: %w", domain.ErrTransport, readErr))
			}
			c.logger.Debug().Int("code", code).Str("reason", reason).Msg("websocket closed")
			h.OnClose(code, reason)
			return
		}
		h.OnMessage(data)
	}
}

func (c *wsConn) Send(ctx context.Context, data []byte) error {
	c.mu.Lock()
	conn, closed := c.conn, c.closed
	c.mu.Unlock()

	if conn == nil || closed {
		return fmt.Errorf("transport.Send: %w", domain.ErrNotConnected)
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("transport.Send: %w: %w", domain.ErrTransport, err)
	}
	return nil
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	defer c.cancel()

	if conn == nil {
		return nil
	}
	if err := conn.Close(websocket.StatusNormalClosure, ""); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("transport.Close: %w", err)
	}
	return nil
}

func (c *wsConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func closeInfo(err error) (int, string) {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return int(ce.Code), ce.Reason
	}
	return CloseAbnormal, ""
}
