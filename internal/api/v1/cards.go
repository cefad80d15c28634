package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/protocol"
)

// CardBody is the API view of domain.Card.
type CardBody struct {
	ID          int64            `json:"id"`
	BoardID     int64            `json:"board_id,omitempty"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Column      domain.Column    `json:"column" enum:"todo,in_progress,done"`
	Position    int              `json:"position"`
	CreatedBy   int64            `json:"created_by,omitempty"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
	AssignedTo  []AssignmentBody `json:"assigned_to"`
}

type AssignmentBody struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	AssignedAt *time.Time `json:"assigned_at,omitempty"`
}

func newCardBody(c domain.Card) *CardBody {
	body := &CardBody{
		ID:          c.ID,
		BoardID:     c.BoardID,
		Title:       c.Title,
		Description: c.Description,
		Column:      c.Column,
		Position:    c.Position,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   timePtr(c.CreatedAt),
		UpdatedAt:   timePtr(c.UpdatedAt),
		AssignedTo:  make([]AssignmentBody, 0, len(c.AssignedTo)),
	}
	for _, a := range c.AssignedTo {
		ab := AssignmentBody{ID: a.ID, UserID: a.UserID}
		if a.AssignedAt != nil {
			ab.AssignedAt = timePtr(*a.AssignedAt)
		}
		body.AssignedTo = append(body.AssignedTo, ab)
	}
	return body
}

func timePtr(ts domain.Timestamp) *time.Time {
	if ts.IsZero() {
		return nil
	}
	t := ts.UTC()
	return &t
}

type GetCardInput struct {
	CardID int64 `path:"cardID" minimum:"1" doc:"Card ID"`
}

type GetCardOutput struct {
	Body *CardBody
}

type CreateCardInput struct {
	Body struct {
		Title       string        `json:"title" minLength:"1" maxLength:"255" doc:"Card title"`
		Description string        `json:"description,omitempty" doc:"Card description"`
		Column      domain.Column `json:"column,omitempty" enum:"todo,in_progress,done" default:"todo" doc:"Target column"`
	}
}

type UpdateCardInput struct {
	CardID int64 `path:"cardID" minimum:"1" doc:"Card ID"`
	Body   struct {
		Title       *string        `json:"title,omitempty" minLength:"1" maxLength:"255" doc:"Card title"`
		Description *string        `json:"description,omitempty" doc:"Card description"`
		Column      *domain.Column `json:"column,omitempty" enum:"todo,in_progress,done" doc:"Column"`
		Position    *int           `json:"position,omitempty" minimum:"0" doc:"Position within the column"`
	}
}

type MoveCardInput struct {
	CardID int64 `path:"cardID" minimum:"1" doc:"Card ID"`
	Body   struct {
		Column domain.Column `json:"column" enum:"todo,in_progress,done" doc:"Target column; the card is appended to its end"`
	}
}

type DeleteCardInput struct {
	CardID int64 `path:"cardID" minimum:"1" doc:"Card ID"`
}

// RelayBody acknowledges an action handed to the board server. The local
// view changes only when the server broadcasts the resulting event.
type RelayBody struct {
	Action string `json:"action" doc:"Relayed action"`
	CardID int64  `json:"card_id,omitempty"`
}

type RelayOutput struct {
	Body *RelayBody
}

func RegisterCardRoutes(api huma.API, board Board) {
	huma.Register(api, huma.Operation{
		OperationID: "get-card",
		Method:      http.MethodGet,
		Path:        "/cards/{cardID}",
		Summary:     "Get a card from the local view",
		Tags:        []string{"Cards"},
	}, func(_ context.Context, input *GetCardInput) (*GetCardOutput, error) {
		c, ok := board.Card(input.CardID)
		if !ok {
			return nil, huma.Error404NotFound("card not found")
		}
		return &GetCardOutput{Body: newCardBody(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-card",
		Method:        http.MethodPost,
		Path:          "/cards",
		Summary:       "Create a card at the end of a column",
		Tags:          []string{"Cards"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *CreateCardInput) (*RelayOutput, error) {
		column := input.Body.Column
		if column == "" {
			column = domain.ColumnTodo
		}
		if err := board.CreateCard(ctx, input.Body.Title, input.Body.Description, column); err != nil {
			return nil, relayError(err)
		}
		return &RelayOutput{Body: &RelayBody{Action: string(protocol.ActionCreate)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "update-card",
		Method:        http.MethodPatch,
		Path:          "/cards/{cardID}",
		Summary:       "Update a card",
		Tags:          []string{"Cards"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *UpdateCardInput) (*RelayOutput, error) {
		patch := protocol.CardPatch{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Column:      input.Body.Column,
			Position:    input.Body.Position,
		}
		if err := board.UpdateCard(ctx, input.CardID, patch); err != nil {
			return nil, relayError(err)
		}
		return &RelayOutput{Body: &RelayBody{Action: string(protocol.ActionUpdate), CardID: input.CardID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "move-card",
		Method:        http.MethodPost,
		Path:          "/cards/{cardID}/move",
		Summary:       "Move a card to the end of a column",
		Tags:          []string{"Cards"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *MoveCardInput) (*RelayOutput, error) {
		if err := board.MoveCard(ctx, input.CardID, input.Body.Column); err != nil {
			return nil, relayError(err)
		}
		return &RelayOutput{Body: &RelayBody{Action: string(protocol.ActionMove), CardID: input.CardID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-card",
		Method:        http.MethodDelete,
		Path:          "/cards/{cardID}",
		Summary:       "Delete a card",
		Tags:          []string{"Cards"},
		DefaultStatus: http.StatusAccepted,
	}, func(ctx context.Context, input *DeleteCardInput) (*RelayOutput, error) {
		if err := board.DeleteCard(ctx, input.CardID); err != nil {
			return nil, relayError(err)
		}
		return &RelayOutput{Body: &RelayBody{Action: string(protocol.ActionDelete), CardID: input.CardID}}, nil
	})
}

func relayError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound("card not found")
	case errors.Is(err, domain.ErrInvalidAction):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return huma.Error429TooManyRequests("action rate limit exceeded")
	case errors.Is(err, domain.ErrNotConnected):
		return huma.Error503ServiceUnavailable("board is not connected")
	default:
		return huma.Error500InternalServerError("failed to relay action", err)
	}
}
