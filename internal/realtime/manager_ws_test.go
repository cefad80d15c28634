package realtime_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dilenshah23/collaboration-board/internal/realtime"
	"github.com/dilenshah23/collaboration-board/internal/transport"
)

func TestManager_WebSocket_ContextCancelEndsSubscription(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	sched := &manualScheduler{}
	logger := zerolog.Nop()
	m := realtime.NewManager(realtime.Options{
		BaseURL:     "ws" + strings.TrimPrefix(server.URL, "http"),
		Dialer:      transport.NewWebSocketDialer(transport.WebSocketOptions{}, logger),
		Credentials: staticToken("tok"),
		Scheduler:   sched,
		Logger:      &logger,
	})
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(t.Context())
	require.NoError(t, m.Open(ctx, 1))
	require.Eventually(t, func() bool { return m.Status().State == realtime.StateOpen },
		5*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return m.Status().State == realtime.StateClosed },
		5*time.Second, 10*time.Millisecond)

	st := m.Status()
	assert.Equal(t, transport.CloseGoingAway, st.CloseCode)
	assert.NoError(t, st.Err)
	assert.NoError(t, st.LastError, "cancellation is not a transport error")
	assert.Equal(t, 0, st.Attempts)
	assert.Empty(t, sched.pending())
}
