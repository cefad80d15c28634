package realtime

import (
	"context"
	"encoding/json"
	"time"
)

// State is the lifecycle state of a board subscription.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of a Manager.
type Status struct {
	BoardID  int64
	State    State
	Attempts int
	// Err is the condition surfaced to the caller: a missing credential or
	// exhausted reconnects. It stays set until the next successful open.
	Err error
	// LastError is the most recent transient transport error.
	LastError   error
	CloseCode   int
	CloseReason string
}

// Connected reports whether the subscription is open.
func (s Status) Connected() bool {
	return s.State == StateOpen
}

func (s Status) MarshalJSON() ([]byte, error) {
	out := struct {
		BoardID     int64  `json:"board_id"`
		State       string `json:"state"`
		Connected   bool   `json:"connected"`
		Attempts    int    `json:"attempts"`
		Error       string `json:"error,omitempty"`
		LastError   string `json:"last_error,omitempty"`
		CloseCode   int    `json:"close_code,omitempty"`
		CloseReason string `json:"close_reason,omitempty"`
	}{
		BoardID:     s.BoardID,
		State:       s.State.String(),
		Connected:   s.Connected(),
		Attempts:    s.Attempts,
		CloseCode:   s.CloseCode,
		CloseReason: s.CloseReason,
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	if s.LastError != nil {
		out.LastError = s.LastError.Error()
	}
	return json.Marshal(out)
}

// CredentialProvider supplies the access token used for each connection
// attempt. An empty token is treated as missing.
type CredentialProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// CredentialFunc adapts a function to CredentialProvider.
type CredentialFunc func(ctx context.Context) (string, error)

func (f CredentialFunc) AccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// Scheduler runs f once after d. The returned stop func cancels a pending
// run and reports whether it did. f must not run before AfterFunc returns.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// TimerScheduler schedules on the runtime timer.
type TimerScheduler struct{}

func (TimerScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
