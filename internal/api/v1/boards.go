package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dilenshah23/collaboration-board/internal/domain"
)

type BoardColumn struct {
	Todo       []*CardBody `json:"todo"`
	InProgress []*CardBody `json:"in_progress"`
	Done       []*CardBody `json:"done"`
}

// column returns the slice holding col, or nil for an unknown column.
func (b *BoardColumn) column(col domain.Column) *[]*CardBody {
	switch col {
	case domain.ColumnTodo:
		return &b.Todo
	case domain.ColumnInProgress:
		return &b.InProgress
	case domain.ColumnDone:
		return &b.Done
	default:
		return nil
	}
}

type GetBoardOutput struct {
	Body *BoardColumn
}

func RegisterBoardRoutes(api huma.API, board Board) {
	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/board",
		Summary:     "Get the kanban view of the subscribed board",
		Tags:        []string{"Boards"},
	}, func(_ context.Context, _ *struct{}) (*GetBoardOutput, error) {
		out := &BoardColumn{}
		for _, col := range domain.Columns() {
			*out.column(col) = make([]*CardBody, 0)
		}

		// Cards arrive ordered by column then position.
		for _, c := range board.Cards() {
			if dst := out.column(c.Column); dst != nil {
				*dst = append(*dst, newCardBody(c))
			}
		}

		return &GetBoardOutput{Body: out}, nil
	})
}
