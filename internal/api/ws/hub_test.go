package ws_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dilenshah23/collaboration-board/internal/api/ws"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	channels []string
	feed     chan []byte
	err      error
	cleaned  chan struct{}
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{
		feed:    make(chan []byte, 8),
		cleaned: make(chan struct{}),
	}
}

func (f *fakeSubscriber) Subscribe(_ context.Context, channel string) (<-chan []byte, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channel)
	if f.err != nil {
		return nil, nil, f.err
	}
	var once sync.Once
	return f.feed, func() { once.Do(func() { close(f.cleaned) }) }, nil
}

func (f *fakeSubscriber) subscribed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.channels...)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	return string(data), err
}

func TestHub_ServeBoard(t *testing.T) {
	t.Parallel()

	sub := newFakeSubscriber()
	hub := ws.NewHub(sub, 42, ws.HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeBoard))
	defer srv.Close()

	conn := dial(t, srv)

	sub.feed <- []byte(`{"type":"card.deleted","data":{"id":1}}`)
	sub.feed <- []byte(`{"type":"card.deleted","data":{"id":2}}`)

	got, err := read(t, conn)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"card.deleted","data":{"id":1}}`, got)

	got, err = read(t, conn)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"card.deleted","data":{"id":2}}`, got)

	assert.Equal(t, []string{"board:42"}, sub.subscribed())
}

func TestHub_ServeStatus(t *testing.T) {
	t.Parallel()

	sub := newFakeSubscriber()
	hub := ws.NewHub(sub, 42, ws.HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeStatus))
	defer srv.Close()

	conn := dial(t, srv)
	sub.feed <- []byte(`{"board_id":42,"state":"open"}`)

	got, err := read(t, conn)
	require.NoError(t, err)
	assert.JSONEq(t, `{"board_id":42,"state":"open"}`, got)
	assert.Equal(t, []string{"board:42:status"}, sub.subscribed())
}

func TestHub_ChannelClosed(t *testing.T) {
	t.Parallel()

	sub := newFakeSubscriber()
	hub := ws.NewHub(sub, 1, ws.HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeBoard))
	defer srv.Close()

	conn := dial(t, srv)
	close(sub.feed)

	_, err := read(t, conn)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))

	select {
	case <-sub.cleaned:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription was not cleaned up")
	}
}

func TestHub_SubscribeFailure(t *testing.T) {
	t.Parallel()

	sub := newFakeSubscriber()
	sub.err = errors.New("redis down")
	hub := ws.NewHub(sub, 1, ws.HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeBoard))
	defer srv.Close()

	conn := dial(t, srv)

	_, err := read(t, conn)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusInternalError, websocket.CloseStatus(err))
}

func TestHub_ClientDisconnect(t *testing.T) {
	t.Parallel()

	sub := newFakeSubscriber()
	hub := ws.NewHub(sub, 1, ws.HubOptions{})
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeBoard))
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return len(sub.subscribed()) == 1 }, 5*time.Second, 10*time.Millisecond)

	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	select {
	case <-sub.cleaned:
	case <-time.After(5 * time.Second):
		t.Fatal("subscription was not cleaned up after the client left")
	}
}
