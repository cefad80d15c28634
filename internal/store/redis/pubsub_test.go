package redis_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/dilenshah23/collaboration-board/internal/store/redis"
)

func TestBoardChannel(t *testing.T) {
	t.Parallel()

	t.Run("happy path", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "board:42", redisstore.BoardChannel(42))
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()

		got := redisstore.BoardChannel(7)
		assert.True(t, strings.HasPrefix(got, "board:"), "expected prefix 'board:', got %q", got)
	})

	t.Run("different inputs produce different outputs", func(t *testing.T) {
		t.Parallel()

		assert.NotEqual(t, redisstore.BoardChannel(1), redisstore.BoardChannel(11))
	})
}

func TestStatusChannel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "board:42:status", redisstore.StatusChannel(42))
	assert.NotEqual(t, redisstore.BoardChannel(42), redisstore.StatusChannel(42),
		"event and status channels must not collide")
}

func TestNew_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	// Port 1 on loopback refuses connections.
	ps, err := redisstore.New(ctx, "127.0.0.1:1", "", 0, redisstore.Options{})
	require.Error(t, err)
	assert.Nil(t, ps)
	assert.Contains(t, err.Error(), "redis.New: ping 127.0.0.1:1")
}
