package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// BoardEndpoint builds {base}/ws/boards/{boardID}?token={token}. The token
// travels as a query parameter because browser WebSocket handshakes cannot
// carry an Authorization header and the server expects the same contract.
func BoardEndpoint(base string, boardID int64, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("transport.BoardEndpoint: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("transport.BoardEndpoint: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("transport.BoardEndpoint: missing host in %q", base)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/boards/" + strconv.FormatInt(boardID, 10)
	u.RawPath = ""

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
