// Package cardstore holds the locally mirrored cards of one board.
package cardstore

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
)

// Store is an in-memory card set keyed by id. Every mutation is an
// idempotent upsert or remove, so events that arrive out of order or twice
// leave the store consistent. Reads return copies.
type Store struct {
	mu    sync.RWMutex
	cards map[int64]domain.Card
}

func New() *Store {
	return &Store{cards: make(map[int64]domain.Card)}
}

// Apply folds ev into the store and reports whether ev was a card event.
// Unknown events are ignored.
func (s *Store) Apply(ev protocol.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case protocol.InitialState:
		s.cards = make(map[int64]domain.Card, len(e.Cards))
		for _, c := range e.Cards {
			s.cards[c.ID] = c.Clone()
		}
	case protocol.CardCreated:
		s.cards[e.Card.ID] = e.Card.Clone()
	case protocol.CardUpdated:
		// An update for a card we never saw is inserted.
		s.cards[e.Card.ID] = e.Card.Clone()
	case protocol.CardMoved:
		s.cards[e.Card.ID] = e.Card.Clone()
	case protocol.CardDeleted:
		delete(s.cards, e.ID)
	default:
		return false
	}
	return true
}

// HandleEvent lets the store subscribe to a realtime.Manager directly.
func (s *Store) HandleEvent(ev protocol.Event) {
	s.Apply(ev)
}

// Get returns the card with id.
func (s *Store) Get(id int64) (domain.Card, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cards[id]
	if !ok {
		return domain.Card{}, false
	}
	return c.Clone(), true
}

// Cards returns every card ordered by column, then position, then id.
func (s *Store) Cards() []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c.Clone())
	}
	slices.SortFunc(out, compareCards)
	return out
}

// Column returns the cards in col ordered by position, then id.
func (s *Store) Column(col domain.Column) []domain.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Card
	for _, c := range s.cards {
		if c.Column == col {
			out = append(out, c.Clone())
		}
	}
	slices.SortFunc(out, compareCards)
	return out
}

// NextPosition is the position a card appended to col would take.
func (s *Store) NextPosition(col domain.Column) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.cards {
		if c.Column == col {
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cards)
}

// Clear drops every card. Called when the subscription is torn down.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = make(map[int64]domain.Card)
}

func compareCards(a, b domain.Card) int {
	if c := cmp.Compare(a.Column.Rank(), b.Column.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
