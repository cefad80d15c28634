// Package session ties one board subscription together: the connection
// manager, the local card store fed by it and the action sender relaying
// through it.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dilenshah23/collaboration-board/internal/actions"
	"github.com/dilenshah23/collaboration-board/internal/backoff"
	"github.com/dilenshah23/collaboration-board/internal/cardstore"
	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
	"github.com/dilenshah23/collaboration-board/internal/transport"
)

type Options struct {
	BoardID     int64
	BaseURL     string
	Dialer      transport.Dialer
	Credentials realtime.CredentialProvider
	Scheduler   realtime.Scheduler
	Policy      backoff.Policy
	// ActionRate throttles outbound actions per second; zero disables it.
	ActionRate  float64
	ActionBurst int
	Logger      *zerolog.Logger
}

// Session is one board subscription with its local state.
type Session struct {
	id      uuid.UUID
	boardID int64
	manager *realtime.Manager
	store   *cardstore.Store
	sender  *actions.Sender
	logger  zerolog.Logger

	closeOnce sync.Once
	closeErr  error
	detach    []func()
}

func New(opts Options) *Session {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	id := uuid.New()
	logger = logger.With().Str("session_id", id.String()).Logger()

	manager := realtime.NewManager(realtime.Options{
		BaseURL:     opts.BaseURL,
		Dialer:      opts.Dialer,
		Credentials: opts.Credentials,
		Scheduler:   opts.Scheduler,
		Policy:      opts.Policy,
		Logger:      &logger,
	})
	store := cardstore.New()

	s := &Session{
		id:      id,
		boardID: opts.BoardID,
		manager: manager,
		store:   store,
		sender:  actions.NewSender(manager, actions.WithRateLimit(opts.ActionRate, opts.ActionBurst), actions.WithLogger(logger)),
		logger:  logger.With().Str("component", "session").Int64("board_id", opts.BoardID).Logger(),
	}

	// The store subscribes first so later subscribers observe the applied state.
	s.detach = append(s.detach,
		manager.Subscribe(store),
		manager.Subscribe(realtime.SubscriberFunc(s.logEvent)),
	)
	return s
}

func (s *Session) ID() uuid.UUID  { return s.id }
func (s *Session) BoardID() int64 { return s.boardID }

// Open connects to the board. See realtime.Manager.Open.
func (s *Session) Open(ctx context.Context) error {
	if err := s.manager.Open(ctx, s.boardID); err != nil {
		return fmt.Errorf("session.Session.Open: %w", err)
	}
	return nil
}

// Reconnect re-opens a subscription that has stopped retrying.
func (s *Session) Reconnect() error {
	if err := s.manager.Reconnect(); err != nil {
		return fmt.Errorf("session.Session.Reconnect: %w", err)
	}
	return nil
}

// Close tears the subscription down and clears the local cards.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if err := s.manager.Close(); err != nil {
			s.closeErr = fmt.Errorf("session.Session.Close: %w", err)
		}
		for _, fn := range s.detach {
			fn()
		}
		s.store.Clear()
	})
	return s.closeErr
}

// Subscribe registers sub for every decoded event, after the store has
// applied it.
func (s *Session) Subscribe(sub realtime.Subscriber) func() {
	return s.manager.Subscribe(sub)
}

func (s *Session) WatchStatus(fn func(realtime.Status)) func() {
	return s.manager.WatchStatus(fn)
}

func (s *Session) Status() realtime.Status {
	return s.manager.Status()
}

func (s *Session) Cards() []domain.Card {
	return s.store.Cards()
}

func (s *Session) Column(col domain.Column) []domain.Card {
	return s.store.Column(col)
}

func (s *Session) Card(id int64) (domain.Card, bool) {
	return s.store.Get(id)
}

// Send validates and relays action.
func (s *Session) Send(ctx context.Context, action protocol.Action) error {
	return s.sender.Send(ctx, action)
}

// CreateCard appends a new card to the end of column.
func (s *Session) CreateCard(ctx context.Context, title, description string, column domain.Column) error {
	action := protocol.NewCreate(title, description, column, s.store.NextPosition(column))
	if err := s.sender.Send(ctx, action); err != nil {
		return fmt.Errorf("session.Session.CreateCard: %w", err)
	}
	return nil
}

// UpdateCard changes the fields set in patch on a card in the local view.
func (s *Session) UpdateCard(ctx context.Context, id int64, patch protocol.CardPatch) error {
	if _, ok := s.store.Get(id); !ok {
		return fmt.Errorf("session.Session.UpdateCard(%d): %w", id, domain.ErrNotFound)
	}
	if err := s.sender.Send(ctx, protocol.NewUpdate(id, patch)); err != nil {
		return fmt.Errorf("session.Session.UpdateCard(%d): %w", id, err)
	}
	return nil
}

// MoveCard moves a card to the end of column.
func (s *Session) MoveCard(ctx context.Context, id int64, column domain.Column) error {
	if _, ok := s.store.Get(id); !ok {
		return fmt.Errorf("session.Session.MoveCard(%d): %w", id, domain.ErrNotFound)
	}
	action := protocol.NewMove(id, column, s.store.NextPosition(column))
	if err := s.sender.Send(ctx, action); err != nil {
		return fmt.Errorf("session.Session.MoveCard(%d): %w", id, err)
	}
	return nil
}

func (s *Session) DeleteCard(ctx context.Context, id int64) error {
	if _, ok := s.store.Get(id); !ok {
		return fmt.Errorf("session.Session.DeleteCard(%d): %w", id, domain.ErrNotFound)
	}
	if err := s.sender.Send(ctx, protocol.NewDelete(id)); err != nil {
		return fmt.Errorf("session.Session.DeleteCard(%d): %w", id, err)
	}
	return nil
}

func (s *Session) logEvent(ev protocol.Event) {
	if _, ok := ev.(protocol.UnknownEvent); ok {
		return
	}
	e := s.logger.Info().Str("event", string(ev.Type()))
	if actor := ev.Origin(); actor != nil {
		e = e.Int64("user_id", actor.UserID).Str("username", actor.Username)
	}
	switch v := ev.(type) {
	case protocol.InitialState:
		e = e.Int("cards", len(v.Cards))
	case protocol.CardCreated:
		e = e.Int64("card_id", v.Card.ID)
	case protocol.CardUpdated:
		e = e.Int64("card_id", v.Card.ID)
	case protocol.CardMoved:
		e = e.Int64("card_id", v.Card.ID).Str("column", string(v.Card.Column))
	case protocol.CardDeleted:
		e = e.Int64("card_id", v.ID)
	}
	e.Int("total", s.store.Len()).Msg("board event applied")
}
