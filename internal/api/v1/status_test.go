package v1_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/dilenshah23/collaboration-board/internal/api/v1"
	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
)

// ---------------------------------------------------------------------------
// GET /status
// ---------------------------------------------------------------------------

func TestGetStatus(t *testing.T) {
	t.Parallel()

	t.Run("open", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterStatusRoutes(api, &mockBoard{
			statusFunc: func() realtime.Status {
				return realtime.Status{BoardID: 42, State: realtime.StateOpen}
			},
			cardsFunc: func() []domain.Card {
				return []domain.Card{{ID: 1}, {ID: 2}}
			},
		})

		resp := api.Get("/status")
		require.Equal(t, http.StatusOK, resp.Code)

		var body v1.StatusBody
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, int64(42), body.BoardID)
		assert.Equal(t, "open", body.State)
		assert.True(t, body.Connected)
		assert.Equal(t, 2, body.Cards)
		assert.Empty(t, body.Error)
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterStatusRoutes(api, &mockBoard{
			statusFunc: func() realtime.Status {
				return realtime.Status{
					BoardID:   42,
					State:     realtime.StateClosed,
					Attempts:  5,
					Err:       fmt.Errorf("realtime: %w", domain.ErrReconnectExhausted),
					LastError: errors.New("dial tcp: connection refused"),
					CloseCode: 1006,
				}
			},
		})

		resp := api.Get("/status")
		require.Equal(t, http.StatusOK, resp.Code)

		var body v1.StatusBody
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "closed", body.State)
		assert.False(t, body.Connected)
		assert.Equal(t, 5, body.Attempts)
		assert.Contains(t, body.Error, "reconnect attempts exhausted")
		assert.Equal(t, "dial tcp: connection refused", body.LastError)
		assert.Equal(t, 1006, body.CloseCode)
	})
}

// ---------------------------------------------------------------------------
// POST /reconnect
// ---------------------------------------------------------------------------

func TestReconnect(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		var called bool
		_, api := humatest.New(t)
		v1.RegisterStatusRoutes(api, &mockBoard{
			reconnectFunc: func() error {
				called = true
				return nil
			},
			statusFunc: func() realtime.Status {
				return realtime.Status{BoardID: 1, State: realtime.StateConnecting, Attempts: 5}
			},
		})

		resp := api.Post("/reconnect")
		require.Equal(t, http.StatusAccepted, resp.Code)
		assert.True(t, called)

		var body v1.StatusBody
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "connecting", body.State)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			err  error
			want int
		}{
			{"missing_credential", fmt.Errorf("open: %w", domain.ErrMissingCredential), http.StatusUnauthorized},
			{"shut_down", fmt.Errorf("reconnect: %w", realtime.ErrClosed), http.StatusConflict},
			{"other", errors.New("never opened"), http.StatusInternalServerError},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				_, api := humatest.New(t)
				v1.RegisterStatusRoutes(api, &mockBoard{
					reconnectFunc: func() error { return tt.err },
				})

				resp := api.Post("/reconnect")
				assert.Equal(t, tt.want, resp.Code)
			})
		}
	})
}
