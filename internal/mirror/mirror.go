// Package mirror republishes a board subscription's events and status
// changes to Redis pub/sub.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dilenshah23/collaboration-board/internal/protocol"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
	redisstore "github.com/dilenshah23/collaboration-board/internal/store/redis"
)

const (
	DefaultBuffer         = 256
	DefaultPublishTimeout = 5 * time.Second
)

// Publisher is satisfied by *redisstore.PubSub.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type Options struct {
	Buffer         int
	PublishTimeout time.Duration
	Logger         *zerolog.Logger
}

type message struct {
	channel string
	payload []byte
}

// Mirror queues frames and publishes them from a single worker, so frames
// leave in the order they arrived. When the queue is full new frames are
// dropped with a warning; the board subscription is never blocked.
type Mirror struct {
	pub     Publisher
	boardID int64
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan message
	done    chan struct{}
	started bool
}

func New(pub Publisher, boardID int64, opts Options) *Mirror {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Mirror{
		pub:     pub,
		boardID: boardID,
		timeout: opts.PublishTimeout,
		logger:  logger.With().Str("component", "mirror").Int64("board_id", boardID).Logger(),
		queue:   make(chan message, opts.Buffer),
		done:    make(chan struct{}),
	}
}

// Start launches the publishing worker. It returns when ctx is done or Close
// has drained the queue.
func (m *Mirror) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run(ctx)
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.queue:
			if !ok {
				return
			}
			m.publish(ctx, msg)
		}
	}
}

func (m *Mirror) publish(ctx context.Context, msg message) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	if err := m.pub.Publish(pubCtx, msg.channel, msg.payload); err != nil {
		m.logger.Warn().Err(err).Str("channel", msg.channel).Msg("mirror publish failed")
	}
}

// HandleEvent queues ev for the board channel. Unknown events are not
// mirrored.
func (m *Mirror) HandleEvent(ev protocol.Event) {
	if _, ok := ev.(protocol.UnknownEvent); ok {
		return
	}
	payload, err := protocol.EncodeEvent(ev)
	if err != nil {
		m.logger.Warn().Err(err).Str("event", string(ev.Type())).Msg("mirror encode failed")
		return
	}
	m.enqueue(message{channel: redisstore.BoardChannel(m.boardID), payload: payload})
}

// HandleStatus queues st for the status channel. It matches the callback
// accepted by realtime.Manager.WatchStatus.
func (m *Mirror) HandleStatus(st realtime.Status) {
	payload, err := json.Marshal(st)
	if err != nil {
		m.logger.Warn().Err(err).Msg("mirror encode status failed")
		return
	}
	m.enqueue(message{channel: redisstore.StatusChannel(m.boardID), payload: payload})
}

func (m *Mirror) enqueue(msg message) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return
	}
	select {
	case m.queue <- msg:
	default:
		m.logger.Warn().Str("channel", msg.channel).Msg("mirror buffer full, dropping frame")
	}
}

// Close stops accepting frames and waits for the worker to publish what is
// already queued, or for ctx to expire.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	started := m.started
	m.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mirror.Mirror.Close: %w", ctx.Err())
	}
}
