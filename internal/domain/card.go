package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Column string

const (
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in_progress"
	ColumnDone       Column = "done"
)

// Columns lists the board columns in display order.
func Columns() []Column {
	return []Column{ColumnTodo, ColumnInProgress, ColumnDone}
}

// Valid reports whether c is one of the known board columns.
func (c Column) Valid() bool {
	switch c {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	default:
		return false
	}
}

// Rank returns the display index of the column. Unknown columns sort last.
func (c Column) Rank() int {
	switch c {
	case ColumnTodo:
		return 0
	case ColumnInProgress:
		return 1
	case ColumnDone:
		return 2
	default:
		return 3
	}
}

// Card mirrors the card entity served by the board REST API and pushed over
// the event stream.
type Card struct {
	ID          int64        `json:"id"`
	BoardID     int64        `json:"board_id"`
	Title       string       `json:"title"`
	Description *string      `json:"description,omitempty"`
	Column      Column       `json:"column"`
	Position    int          `json:"position"`
	CreatedBy   int64        `json:"created_by"`
	CreatedAt   Timestamp    `json:"created_at"`
	UpdatedAt   Timestamp    `json:"updated_at"`
	AssignedTo  []Assignment `json:"assigned_to"`
}

// Clone returns a deep copy so callers can hand cards out without sharing
// the description pointer or the assignment slice.
func (c Card) Clone() Card {
	out := c
	if c.Description != nil {
		d := *c.Description
		out.Description = &d
	}
	if c.AssignedTo != nil {
		out.AssignedTo = make([]Assignment, len(c.AssignedTo))
		copy(out.AssignedTo, c.AssignedTo)
	}
	return out
}

type Assignment struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	AssignedAt *Timestamp `json:"assigned_at,omitempty"`
}

// Actor identifies the user whose action produced a board event.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// naiveLayouts are accepted in addition to RFC 3339. The board backend emits
// datetime.isoformat() of UTC values without a zone designator.
var naiveLayouts = []string{ //nolint:gochecknoglobals // parse table
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp is a time.Time that also decodes zone-less ISO-8601 values as UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("domain.Timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("domain.Timestamp: unrecognised time %q", s)
}
