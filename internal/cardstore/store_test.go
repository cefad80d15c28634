package cardstore_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dilenshah23/collaboration-board/internal/cardstore"
	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
)

func card(id int64, col domain.Column, pos int) domain.Card {
	return domain.Card{ID: id, BoardID: 1, Title: "card", Column: col, Position: pos}
}

func ids(cards []domain.Card) []int64 {
	out := make([]int64, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestApply_InitialStateReplaces(t *testing.T) {
	t.Parallel()

	s := cardstore.New()
	s.Apply(protocol.CardCreated{Card: card(99, domain.ColumnDone, 0)})

	s.Apply(protocol.InitialState{Cards: []domain.Card{
		card(1, domain.ColumnTodo, 0),
		card(2, domain.ColumnTodo, 1),
	}})
	s.Apply(protocol.CardCreated{Card: card(3, domain.ColumnInProgress, 0)})

	assert.Equal(t, []int64{1, 2, 3}, ids(s.Cards()), "prior contents are discarded")
	_, ok := s.Get(99)
	assert.False(t, ok)
}

func TestApply_Created(t *testing.T) {
	t.Parallel()

	s := cardstore.New()
	c := card(1, domain.ColumnTodo, 0)
	s.Apply(protocol.CardCreated{Card: c})
	s.Apply(protocol.CardCreated{Card: c})

	assert.Equal(t, 1, s.Len(), "duplicate create is an upsert")
}

func TestApply_UpdatedAndMoved(t *testing.T) {
	t.Parallel()

	t.Run("replaces existing", func(t *testing.T) {
		t.Parallel()

		s := cardstore.New()
		s.Apply(protocol.CardCreated{Card: card(1, domain.ColumnTodo, 0)})

		updated := card(1, domain.ColumnTodo, 0)
		updated.Title = "renamed"
		s.Apply(protocol.CardUpdated{Card: updated})

		got, ok := s.Get(1)
		require.True(t, ok)
		assert.Equal(t, "renamed", got.Title)

		s.Apply(protocol.CardMoved{Card: card(1, domain.ColumnDone, 2)})
		got, _ = s.Get(1)
		assert.Equal(t, domain.ColumnDone, got.Column)
		assert.Equal(t, 2, got.Position)
	})

	t.Run("unknown id is inserted", func(t *testing.T) {
		t.Parallel()

		s := cardstore.New()
		s.Apply(protocol.CardUpdated{Card: card(5, domain.ColumnTodo, 0)})
		s.Apply(protocol.CardMoved{Card: card(6, domain.ColumnDone, 0)})

		assert.Equal(t, []int64{5, 6}, ids(s.Cards()))
	})
}

func TestApply_DeletedIdempotent(t *testing.T) {
	t.Parallel()

	once := cardstore.New()
	twice := cardstore.New()
	for _, s := range []*cardstore.Store{once, twice} {
		s.Apply(protocol.InitialState{Cards: []domain.Card{
			card(7, domain.ColumnTodo, 0),
			card(8, domain.ColumnTodo, 1),
		}})
	}

	once.Apply(protocol.CardDeleted{ID: 7})
	twice.Apply(protocol.CardDeleted{ID: 7})
	twice.Apply(protocol.CardDeleted{ID: 7})

	assert.Equal(t, once.Cards(), twice.Cards())
	assert.Equal(t, []int64{8}, ids(twice.Cards()))

	twice.Apply(protocol.CardDeleted{ID: 404})
	assert.Equal(t, 1, twice.Len(), "deleting an absent card is a no-op")
}

func TestApply_UnknownEventIgnored(t *testing.T) {
	t.Parallel()

	s := cardstore.New()
	s.Apply(protocol.CardCreated{Card: card(1, domain.ColumnTodo, 0)})

	applied := s.Apply(protocol.UnknownEvent{Tag: "board.renamed"})

	assert.False(t, applied)
	assert.Equal(t, 1, s.Len())
}

func TestCards_Ordering(t *testing.T) {
	t.Parallel()

	s := cardstore.New()
	s.Apply(protocol.InitialState{Cards: []domain.Card{
		card(4, domain.ColumnDone, 0),
		card(3, domain.ColumnTodo, 1),
		card(2, domain.ColumnInProgress, 0),
		card(1, domain.ColumnTodo, 1),
		card(5, domain.ColumnTodo, 0),
	}})

	assert.Equal(t, []int64{5, 1, 3, 2, 4}, ids(s.Cards()))
	assert.Equal(t, []int64{5, 1, 3}, ids(s.Column(domain.ColumnTodo)))
	assert.Empty(t, s.Column(domain.Column("archived")))

	assert.Equal(t, 3, s.NextPosition(domain.ColumnTodo))
	assert.Equal(t, 1, s.NextPosition(domain.ColumnDone))
}

func TestReadsAreCopies(t *testing.T) {
	t.Parallel()

	desc := "original"
	c := card(1, domain.ColumnTodo, 0)
	c.Description = &desc
	c.AssignedTo = []domain.Assignment{{ID: 1, UserID: 2}}

	s := cardstore.New()
	s.HandleEvent(protocol.CardCreated{Card: c})

	desc = "mutated by sender"
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "original", *got.Description)

	*got.Description = "mutated by reader"
	got.AssignedTo[0].UserID = 9
	again, _ := s.Get(1)
	assert.Equal(t, "original", *again.Description)
	assert.Equal(t, int64(2), again.AssignedTo[0].UserID)
}

func TestClear(t *testing.T) {
	t.Parallel()

	s := cardstore.New()
	s.Apply(protocol.CardCreated{Card: card(1, domain.ColumnTodo, 0)})
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Cards())
}

func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := cardstore.New()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Apply(protocol.CardCreated{Card: card(int64(i+1), domain.ColumnTodo, i)})
		}()
		go func() {
			defer wg.Done()
			_ = s.Cards()
			_ = s.NextPosition(domain.ColumnTodo)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, s.Len())
}
