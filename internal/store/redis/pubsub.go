// Package redis mirrors board traffic onto Redis pub/sub so other local
// processes can follow a subscription without holding their own connection.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultBuffer = 64

// Options tunes a PubSub. The zero value is usable.
type Options struct {
	// Buffer is the queue length of each subscription. Zero means 64.
	Buffer int
	Logger *zerolog.Logger
}

// PubSub publishes mirrored frames and hands them to local subscribers.
type PubSub struct {
	client *redis.Client
	buffer int
	logger zerolog.Logger
}

// New connects to Redis and verifies the connection with PING.
func New(ctx context.Context, addr, password string, db int, opts Options) (*PubSub, error) {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping %s: %w", addr, err)
	}

	return &PubSub{
		client: client,
		buffer: buffer,
		logger: logger.With().Str("component", "redis").Str("addr", addr).Logger(),
	}, nil
}

func (ps *PubSub) Close() error {
	if err := ps.client.Close(); err != nil {
		return fmt.Errorf("redis.PubSub.Close: %w", err)
	}
	return nil
}

// Publish sends payload to channel. Having no listeners is not an error.
func (ps *PubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	receivers, err := ps.client.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("redis.PubSub.Publish(%s): %w", channel, err)
	}
	ps.logger.Debug().Str("channel", channel).Int64("receivers", receivers).Int("bytes", len(payload)).Msg("published")
	return nil
}

// Subscribe follows channel until ctx is done or cleanup is called, after
// which the returned channel is closed. Frames that arrive while the
// subscriber's queue is full are dropped.
func (ps *PubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := ps.client.Subscribe(ctx, channel)

	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.PubSub.Subscribe(%s): receive confirmation: %w", channel, err)
	}

	out := make(chan []byte, ps.buffer)
	incoming := sub.Channel(redis.WithChannelSize(ps.buffer))
	logger := ps.logger.With().Str("channel", channel).Logger()

	go func() {
		defer close(out)
		var dropped int
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-incoming:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
					dropped++
					logger.Warn().Int("dropped", dropped).Msg("subscriber queue full, dropping frame")
				}
			}
		}
	}()

	var once sync.Once
	cleanup := func() {
		once.Do(func() { _ = sub.Close() })
	}

	return out, cleanup, nil
}

// BoardChannel returns the Redis channel carrying decoded board events.
func BoardChannel(boardID int64) string {
	return "board:" + strconv.FormatInt(boardID, 10)
}

// StatusChannel returns the Redis channel carrying connection status changes
// for a board subscription.
func StatusChannel(boardID int64) string {
	return BoardChannel(boardID) + ":status"
}
