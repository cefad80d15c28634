// Package actions validates user-originated card actions and relays them to
// the live board connection.
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
)

// Conn is the relay side of a board subscription. realtime.Manager
// satisfies it.
type Conn interface {
	Send(ctx context.Context, action protocol.Action) error
}

// Sender checks actions locally before they reach the wire.
type Sender struct {
	conn    Conn
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithRateLimit throttles outbound actions to perSecond with the given
// burst. A non-positive rate disables throttling.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Sender) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Sender) { s.logger = l }
}

func NewSender(conn Conn, opts ...Option) *Sender {
	s := &Sender{conn: conn, logger: log.Logger}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With().Str("component", "actions").Logger()
	return s
}

// Send validates action and relays it. Validation failures wrap
// domain.ErrInvalidAction and throttled actions wrap domain.ErrRateLimited;
// neither reaches the connection. Connection errors are returned as is.
func (s *Sender) Send(ctx context.Context, action protocol.Action) error {
	if err := Validate(action); err != nil {
		return fmt.Errorf("actions.Sender.Send: %w", err)
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Warn().Str("action", string(action.Kind)).Msg("action throttled")
		return fmt.Errorf("actions.Sender.Send(%s): %w", action.Kind, domain.ErrRateLimited)
	}
	if err := s.conn.Send(ctx, action); err != nil {
		return fmt.Errorf("actions.Sender.Send(%s): %w", action.Kind, err)
	}
	return nil
}

// Validate reports whether action carries the fields its kind requires.
func Validate(a protocol.Action) error {
	d := a.Data

	switch a.Kind {
	case protocol.ActionCreate:
		if d.Title == nil || strings.TrimSpace(*d.Title) == "" {
			return invalid(a.Kind, "title is required")
		}
		if d.Column != nil && !d.Column.Valid() {
			return invalid(a.Kind, fmt.Sprintf("unknown column %q", *d.Column))
		}
		if d.Position != nil && *d.Position < 0 {
			return invalid(a.Kind, "position must not be negative")
		}
	case protocol.ActionUpdate:
		if d.ID <= 0 {
			return invalid(a.Kind, "card id is required")
		}
		if d.Title == nil && d.Description == nil && d.Column == nil && d.Position == nil {
			return invalid(a.Kind, "nothing to update")
		}
		if d.Title != nil && strings.TrimSpace(*d.Title) == "" {
			return invalid(a.Kind, "title must not be empty")
		}
		if d.Column != nil && !d.Column.Valid() {
			return invalid(a.Kind, fmt.Sprintf("unknown column %q", *d.Column))
		}
		if d.Position != nil && *d.Position < 0 {
			return invalid(a.Kind, "position must not be negative")
		}
	case protocol.ActionMove:
		if d.ID <= 0 {
			return invalid(a.Kind, "card id is required")
		}
		if d.Column == nil || !d.Column.Valid() {
			return invalid(a.Kind, "a valid target column is required")
		}
		if d.Position != nil && *d.Position < 0 {
			return invalid(a.Kind, "position must not be negative")
		}
	case protocol.ActionDelete:
		if d.ID <= 0 {
			return invalid(a.Kind, "card id is required")
		}
	default:
		return fmt.Errorf("unknown action %q: %w", a.Kind, domain.ErrInvalidAction)
	}
	return nil
}

func invalid(kind protocol.ActionType, reason string) error {
	return fmt.Errorf("%s: %s: %w", kind, reason, domain.ErrInvalidAction)
}
