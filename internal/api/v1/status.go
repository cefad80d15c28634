package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dilenshah23/collaboration-board/internal/domain"
	"github.com/dilenshah23/collaboration-board/internal/realtime"
)

// StatusBody is the API view of realtime.Status.
type StatusBody struct {
	BoardID     int64  `json:"board_id" doc:"Subscribed board"`
	State       string `json:"state" enum:"idle,connecting,open,closing,closed" doc:"Connection state"`
	Connected   bool   `json:"connected"`
	Attempts    int    `json:"attempts" doc:"Consecutive failed reconnect attempts"`
	Error       string `json:"error,omitempty" doc:"Terminal condition, cleared by the next successful open"`
	LastError   string `json:"last_error,omitempty" doc:"Most recent transient transport error"`
	CloseCode   int    `json:"close_code,omitempty"`
	CloseReason string `json:"close_reason,omitempty"`
	Cards       int    `json:"cards" doc:"Cards held in the local view"`
}

type GetStatusOutput struct {
	Body *StatusBody
}

type ReconnectOutput struct {
	Body *StatusBody
}

func newStatusBody(st realtime.Status, cards int) *StatusBody {
	body := &StatusBody{
		BoardID:     st.BoardID,
		State:       st.State.String(),
		Connected:   st.Connected(),
		Attempts:    st.Attempts,
		CloseCode:   st.CloseCode,
		CloseReason: st.CloseReason,
		Cards:       cards,
	}
	if st.Err != nil {
		body.Error = st.Err.Error()
	}
	if st.LastError != nil {
		body.LastError = st.LastError.Error()
	}
	return body
}

func RegisterStatusRoutes(api huma.API, board Board) {
	huma.Register(api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Get the board connection status",
		Tags:        []string{"Status"},
	}, func(_ context.Context, _ *struct{}) (*GetStatusOutput, error) {
		return &GetStatusOutput{Body: newStatusBody(board.Status(), len(board.Cards()))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "reconnect",
		Method:        http.MethodPost,
		Path:          "/reconnect",
		Summary:       "Reconnect a closed subscription",
		Description:   "Re-opens the board connection, for example after reconnect attempts are exhausted. A no-op while connecting or open.",
		Tags:          []string{"Status"},
		DefaultStatus: http.StatusAccepted,
	}, func(_ context.Context, _ *struct{}) (*ReconnectOutput, error) {
		if err := board.Reconnect(); err != nil {
			switch {
			case errors.Is(err, domain.ErrMissingCredential):
				return nil, huma.Error401Unauthorized("no usable access token", err)
			case errors.Is(err, realtime.ErrClosed):
				return nil, huma.Error409Conflict("subscription is shut down")
			default:
				return nil, huma.Error500InternalServerError("failed to reconnect", err)
			}
		}
		return &ReconnectOutput{Body: newStatusBody(board.Status(), len(board.Cards()))}, nil
	})
}
