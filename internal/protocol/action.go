package protocol

import "github.com/dilenshah23/collaboration-board/internal/domain"

type ActionType string

const (
	ActionCreate ActionType = "card.create"
	ActionUpdate ActionType = "card.update"
	ActionMove   ActionType = "card.move"
	ActionDelete ActionType = "card.delete"
)

// Action is a user-originated request relayed to the board server. Fields
// left nil are omitted from the wire payload.
type Action struct {
	Kind ActionType
	Data ActionData
}

// ActionData is the partial card payload of an Action.
type ActionData struct {
	ID          int64          `json:"id,omitempty"`
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Column      *domain.Column `json:"column,omitempty"`
	Position    *int           `json:"position,omitempty"`
}

// CardPatch lists the fields an update may change. Nil fields are left as
// they are on the server.
type CardPatch struct {
	Title       *string
	Description *string
	Column      *domain.Column
	Position    *int
}

// NewCreate builds a card.create action. An empty description is omitted.
func NewCreate(title, description string, column domain.Column, position int) Action {
	data := ActionData{
		Title:    ptr(title),
		Column:   ptr(column),
		Position: ptr(position),
	}
	if description != "" {
		data.Description = ptr(description)
	}
	return Action{Kind: ActionCreate, Data: data}
}

// NewUpdate builds a card.update action from patch. Pointers are copied so
// later changes to patch do not reach the action.
func NewUpdate(id int64, patch CardPatch) Action {
	return Action{Kind: ActionUpdate, Data: ActionData{
		ID:          id,
		Title:       clonePtr(patch.Title),
		Description: clonePtr(patch.Description),
		Column:      clonePtr(patch.Column),
		Position:    clonePtr(patch.Position),
	}}
}

// NewMove builds a card.move action.
func NewMove(id int64, column domain.Column, position int) Action {
	return Action{Kind: ActionMove, Data: ActionData{
		ID:       id,
		Column:   ptr(column),
		Position: ptr(position),
	}}
}

// NewDelete builds a card.delete action.
func NewDelete(id int64) Action {
	return Action{Kind: ActionDelete, Data: ActionData{ID: id}}
}

func ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return ptr(*p)
}
