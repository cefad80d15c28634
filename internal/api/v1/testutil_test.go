package v1_test

import (
	"context"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
)

// ---------------------------------------------------------------------------
// Mock Board
// ---------------------------------------------------------------------------

type mockBoard struct {
	statusFunc     func() realtime.Status
	reconnectFunc  func() error
	cardsFunc      func() []domain.Card
	cardFunc       func(id int64) (domain.Card, bool)
	createCardFunc func(ctx context.Context, title, description string, column domain.Column) error
	updateCardFunc func(ctx context.Context, id int64, patch protocol.CardPatch) error
	moveCardFunc   func(ctx context.Context, id int64, column domain.Column) error
	deleteCardFunc func(ctx context.Context, id int64) error
}

func (m *mockBoard) Status() realtime.Status {
	return m.statusFunc()
}

func (m *mockBoard) Reconnect() error {
	return m.reconnectFunc()
}

func (m *mockBoard) Cards() []domain.Card {
	if m.cardsFunc == nil {
		return nil
	}
	return m.cardsFunc()
}

func (m *mockBoard) Card(id int64) (domain.Card, bool) {
	return m.cardFunc(id)
}

func (m *mockBoard) CreateCard(ctx context.Context, title, description string, column domain.Column) error {
	return m.createCardFunc(ctx, title, description, column)
}

func (m *mockBoard) UpdateCard(ctx context.Context, id int64, patch protocol.CardPatch) error {
	return m.updateCardFunc(ctx, id, patch)
}

func (m *mockBoard) MoveCard(ctx context.Context, id int64, column domain.Column) error {
	return m.moveCardFunc(ctx, id, column)
}

func (m *mockBoard) DeleteCard(ctx context.Context, id int64) error {
	return m.deleteCardFunc(ctx, id)
}

func strPtr(s string) *string { return &s }
