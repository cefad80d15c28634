package server

import (
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/dilenshah23/collaboration-board/internal/api/v1"
	"github.com/dilenshah23/collaboration-board/internal/api/ws"
)

func registerAPIRoutes(api huma.API, board v1.Board) {
	v1.RegisterStatusRoutes(api, board)
	v1.RegisterBoardRoutes(api, board)
	v1.RegisterCardRoutes(api, board)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board", hub.ServeBoard)
	r.Get("/status", hub.ServeStatus)
}

// originPatterns converts CORS origins to the host patterns websocket.Accept
// matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			out = append(out, o)
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
