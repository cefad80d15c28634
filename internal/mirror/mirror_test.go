package mirror_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/mirror"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
)

type published struct {
	channel string
	payload string
}

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []published
	err   error
	block chan struct{}
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{channel: channel, payload: string(payload)})
	return nil
}

func (f *fakePublisher) got() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.msgs...)
}

func TestMirror_PublishesInOrder(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	m := mirror.New(pub, 9, mirror.Options{})
	m.Start(t.Context())

	m.HandleEvent(protocol.InitialState{Cards: []domain.Card{{ID: 1, Title: "A", Column: domain.ColumnTodo}}})
	m.HandleEvent(protocol.CardDeleted{ID: 1, BoardID: 9})
	m.HandleEvent(protocol.UnknownEvent{Tag: "board.renamed"})
	m.HandleStatus(realtime.Status{BoardID: 9, State: realtime.StateOpen})

	require.NoError(t, m.Close(t.Context()))

	got := pub.got()
	require.Len(t, got, 3, "unknown events are not mirrored")

	assert.Equal(t, "board:9", got[0].channel)
	ev, err := protocol.Decode([]byte(got[0].payload))
	require.NoError(t, err)
	initial, ok := ev.(protocol.InitialState)
	require.True(t, ok)
	require.Len(t, initial.Cards, 1)
	assert.Equal(t, int64(1), initial.Cards[0].ID)

	assert.Equal(t, "board:9", got[1].channel)
	assert.JSONEq(t, `{"type":"card.deleted","data":{"id":1,"board_id":9}}`, got[1].payload)

	assert.Equal(t, "board:9:status", got[2].channel)
	assert.Contains(t, got[2].payload, `"state":"open"`)
}

func TestMirror_BufferFullDrops(t *testing.T) {
	t.Parallel()

	logs := &bytes.Buffer{}
	logger := zerolog.New(logs)
	pub := &fakePublisher{block: make(chan struct{})}

	// The worker is not started, so nothing drains the queue.
	m := mirror.New(pub, 1, mirror.Options{Buffer: 2, Logger: &logger})
	for i := range 4 {
		m.HandleEvent(protocol.CardDeleted{ID: int64(i + 1)})
	}

	assert.Equal(t, 2, strings.Count(logs.String(), "mirror buffer full"))
	require.NoError(t, m.Close(t.Context()))
	assert.Empty(t, pub.got())
}

func TestMirror_PublishErrorLogged(t *testing.T) {
	t.Parallel()

	logs := &syncBuffer{}
	logger := zerolog.New(logs)
	pub := &fakePublisher{err: errors.New("connection refused")}

	m := mirror.New(pub, 1, mirror.Options{Logger: &logger})
	m.Start(t.Context())
	m.HandleEvent(protocol.CardDeleted{ID: 1})
	require.NoError(t, m.Close(t.Context()))

	assert.Contains(t, logs.String(), "mirror publish failed")
}

func TestMirror_Close(t *testing.T) {
	t.Parallel()

	t.Run("idempotent and drops late frames", func(t *testing.T) {
		t.Parallel()

		pub := &fakePublisher{}
		m := mirror.New(pub, 1, mirror.Options{})
		m.Start(t.Context())

		require.NoError(t, m.Close(t.Context()))
		require.NoError(t, m.Close(t.Context()))

		m.HandleEvent(protocol.CardDeleted{ID: 1})
		assert.Empty(t, pub.got())
	})

	t.Run("gives up when ctx expires", func(t *testing.T) {
		t.Parallel()

		pub := &fakePublisher{block: make(chan struct{})}
		defer close(pub.block)

		m := mirror.New(pub, 1, mirror.Options{PublishTimeout: time.Minute})
		m.Start(t.Context())
		m.HandleEvent(protocol.CardDeleted{ID: 1})

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()
		err := m.Close(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

// syncBuffer guards a bytes.Buffer written from the worker goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
