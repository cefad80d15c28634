// Package ws fans the Redis mirror of a board subscription out to local
// WebSocket clients.
package ws

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	redisstore "github.com/dilenshah23/collaboration-board/internal/store/redis"
)

// Subscriber is satisfied by *redisstore.PubSub.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// Hub manages WebSocket connections backed by Redis pub/sub.
type Hub struct {
	pubsub  Subscriber
	boardID int64
	opts    *websocket.AcceptOptions
	logger  zerolog.Logger
}

type HubOptions struct {
	// OriginPatterns is passed to websocket.AcceptOptions. Empty means
	// same-origin only.
	OriginPatterns []string
	Logger         *zerolog.Logger
}

// NewHub creates a hub for boardID.
func NewHub(pubsub Subscriber, boardID int64, opts HubOptions) *Hub {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Hub{
		pubsub:  pubsub,
		boardID: boardID,
		opts:    &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns},
		logger:  logger.With().Str("component", "ws").Int64("board_id", boardID).Logger(),
	}
}

// ServeBoard streams decoded board events, one JSON frame per message, in
// the inbound wire format.
func (h *Hub) ServeBoard(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, redisstore.BoardChannel(h.boardID))
}

// ServeStatus streams connection status changes.
func (h *Hub) ServeStatus(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, redisstore.StatusChannel(h.boardID))
}

func (h *Hub) stream(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := websocket.Accept(w, r, h.opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their close frame and cancels
	// ctx when they go away.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.pubsub.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	h.logger.Debug().Str("channel", channel).Msg("websocket client attached")

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, msgOK := <-messages:
			if !msgOK {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if writeErr := conn.Write(ctx, websocket.MessageText, msg); writeErr != nil {
				h.logger.Debug().Err(writeErr).Msg("websocket write")
				return
			}
		}
	}
}
