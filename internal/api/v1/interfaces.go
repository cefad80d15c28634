package v1

import (
	"context"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
)

// Board abstracts the live board subscription for handler testing.
// *session.Session satisfies this interface.
type Board interface {
	Status() realtime.Status
	Reconnect() error

	Cards() []domain.Card
	Card(id int64) (domain.Card, bool)

	CreateCard(ctx context.Context, title, description string, column domain.Column) error
	UpdateCard(ctx context.Context, id int64, patch protocol.CardPatch) error
	MoveCard(ctx context.Context, id int64, column domain.Column) error
	DeleteCard(ctx context.Context, id int64) error
}
