package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dilenshah23/collaboration-board/internal/backoff"
	"github.com/dilenshah23/collaboration-board/internal/config"
	"github.com/dilenshah23/collaboration-board/internal/credentials"
	"github.com/dilenshah23/collaboration-board/internal/mirror"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
	"github.com/dilenshah23/collaboration-board/internal/server"
	"github.com/dilenshah23/collaboration-board/internal/session"
	redisstore "github.com/dilenshah23/collaboration-board/internal/store/redis"
	"github.com/dilenshah23/collaboration-board/internal/transport"
)

// runSync subscribes to the configured board and serves the optional local
// API and Redis mirror until ctx is cancelled or a signal arrives.
func runSync(parent context.Context) error {
	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	creds := tokenProvider(cfg.Board)
	logSubject(ctx, creds)

	dialer := transport.NewWebSocketDialer(transport.WebSocketOptions{
		HandshakeTimeout: cfg.Transport.HandshakeTimeout,
		WriteTimeout:     cfg.Transport.WriteTimeout,
		ReadLimit:        cfg.Transport.ReadLimit,
	}, log.Logger)

	sess := session.New(session.Options{
		BoardID:     cfg.Board.ID,
		BaseURL:     cfg.Board.WSURL,
		Dialer:      dialer,
		Credentials: creds,
		Policy: backoff.Policy{
			Base:        cfg.Reconnect.Base,
			Cap:         cfg.Reconnect.Cap,
			MaxAttempts: cfg.Reconnect.MaxAttempts,
		},
		ActionRate:  cfg.Actions.Rate,
		ActionBurst: cfg.Actions.Burst,
	})

	sess.WatchStatus(func(st realtime.Status) {
		ev := log.Info()
		if st.Err != nil {
			ev = log.Error().Err(st.Err)
		}
		ev.Int64("board_id", st.BoardID).
			Str("state", st.State.String()).
			Int("attempts", st.Attempts).
			Msg("connection status changed")
	})

	// Optional Redis mirror.
	var pubsub *redisstore.PubSub
	var mir *mirror.Mirror
	if cfg.Redis.Addr != "" {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisstore.Options{})
		if err != nil {
			return err
		}
		defer pubsub.Close()

		mir = mirror.New(pubsub, cfg.Board.ID, mirror.Options{})
		mir.Start(ctx)
		sess.Subscribe(mir)
		sess.WatchStatus(mir.HandleStatus)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis mirror enabled")
	}

	// Optional local API.
	var srv *server.Server
	if cfg.Server.Addr != "" {
		opts := server.Options{Board: sess, BoardID: cfg.Board.ID}
		if pubsub != nil {
			opts.PubSub = pubsub
		}
		srv = server.New(ctx, cfg.Server, opts)

		go func() {
			if startErr := srv.Start(ctx); startErr != nil {
				log.Error().Err(startErr).Msg("server error")
				cancel()
			}
		}()
	}

	if err := sess.Open(ctx); err != nil {
		if srv == nil {
			return err
		}
		// Recoverable through POST /api/v1/reconnect.
		log.Error().Err(err).Msg("initial subscribe failed")
	} else {
		log.Info().Int64("board_id", cfg.Board.ID).Str("session_id", sess.ID().String()).Msg("subscribed")
	}

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if srv != nil {
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Warn().Err(shutdownErr).Msg("server shutdown")
		}
	}
	if closeErr := sess.Close(); closeErr != nil {
		log.Warn().Err(closeErr).Msg("session close")
	}
	if mir != nil {
		if closeErr := mir.Close(shutdownCtx); closeErr != nil {
			log.Warn().Err(closeErr).Msg("mirror close")
		}
	}

	log.Info().Msg("stopped")
	return nil
}

// tokenProvider prefers the configured token and falls back to the token
// file, which is re-read on every connection attempt.
func tokenProvider(cfg config.BoardConfig) credentials.Provider {
	providers := []credentials.Provider{credentials.Static(cfg.AccessToken)}
	if cfg.TokenFile != "" {
		providers = append(providers, credentials.File(cfg.TokenFile))
	}
	p := credentials.Chain(providers...)
	if cfg.CheckExpiry {
		p = credentials.RequireUnexpired(p, nil)
	}
	return p
}

func logSubject(ctx context.Context, p credentials.Provider) {
	tok, err := p.AccessToken(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("no usable access token yet")
		return
	}
	claims, err := credentials.Inspect(tok)
	if err != nil {
		log.Info().Msg("access token is opaque")
		return
	}
	ev := log.Info().Int64("user_id", claims.UserID).Str("username", claims.Username)
	if claims.ExpiresAt != nil {
		ev = ev.Time("expires_at", claims.ExpiresAt.Time)
	}
	ev.Msg("access token loaded")
}
