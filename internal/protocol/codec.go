// Package protocol implements the JSON frames exchanged with the board event
// stream: inbound events pushed by the server and outbound card actions.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dilenshah23/collaboration-board/internal/domain"
)

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	User *domain.Actor   `json:"user,omitempty"`
}

type outboundFrame struct {
	Action ActionType `json:"action"`
	Data   ActionData `json:"data"`
}

type cardRef struct {
	ID      int64 `json:"id"`
	BoardID int64 `json:"board_id"`
}

var (
	errMissingType = errors.New("missing type tag")
	errMissingData = errors.New("missing data")
	errWantArray   = errors.New("data must be a card list")
	errWantObject  = errors.New("data must be an object")
	errMissingID   = errors.New("card id missing")
)

// Decode parses one inbound frame. Malformed frames return an error wrapping
// domain.ErrDecode. Frames with an unrecognised type tag decode to
// UnknownEvent without error.
func Decode(raw []byte) (Event, error) {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, decodeErr("", err)
	}
	if f.Type == "" {
		return nil, decodeErr("", errMissingType)
	}

	switch EventType(f.Type) {
	case EventInitialState:
		cards, err := decodeCards(f.Data)
		if err != nil {
			return nil, decodeErr(f.Type, err)
		}
		return InitialState{Cards: cards, User: f.User}, nil

	case EventCardCreated:
		card, err := decodeCard(f.Data)
		if err != nil {
			return nil, decodeErr(f.Type, err)
		}
		return CardCreated{Card: card, User: f.User}, nil

	case EventCardUpdated:
		card, err := decodeCard(f.Data)
		if err != nil {
			return nil, decodeErr(f.Type, err)
		}
		return CardUpdated{Card: card, User: f.User}, nil

	case EventCardMoved:
		card, err := decodeCard(f.Data)
		if err != nil {
			return nil, decodeErr(f.Type, err)
		}
		return CardMoved{Card: card, User: f.User}, nil

	case EventCardDeleted:
		if err := wantShape(f.Data, '{'); err != nil {
			return nil, decodeErr(f.Type, err)
		}
		var ref cardRef
		if err := json.Unmarshal(f.Data, &ref); err != nil {
			return nil, decodeErr(f.Type, err)
		}
		if ref.ID == 0 {
			return nil, decodeErr(f.Type, errMissingID)
		}
		return CardDeleted{ID: ref.ID, BoardID: ref.BoardID, User: f.User}, nil

	default:
		return UnknownEvent{Tag: f.Type, Data: f.Data, User: f.User}, nil
	}
}

// Encode serialises an outbound action.
func Encode(a Action) ([]byte, error) {
	b, err := json.Marshal(outboundFrame{Action: a.Kind, Data: a.Data})
	if err != nil {
		return nil, fmt.Errorf("protocol.Encode: %w", err)
	}
	return b, nil
}

// EncodeEvent renders an event back into its wire frame. Decode(EncodeEvent(e))
// yields an event equal to e.
func EncodeEvent(e Event) ([]byte, error) {
	f := inboundFrame{Type: string(e.Type()), User: e.Origin()}

	var (
		data any
		err  error
	)
	switch ev := e.(type) {
	case InitialState:
		cards := ev.Cards
		if cards == nil {
			cards = []domain.Card{}
		}
		data = cards
	case CardCreated:
		data = ev.Card
	case CardUpdated:
		data = ev.Card
	case CardMoved:
		data = ev.Card
	case CardDeleted:
		data = cardRef{ID: ev.ID, BoardID: ev.BoardID}
	case UnknownEvent:
		f.Data = ev.Data
	default:
		return nil, fmt.Errorf("protocol.EncodeEvent: unsupported event %T", e)
	}

	if data != nil {
		f.Data, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("protocol.EncodeEvent: %w", err)
		}
	}

	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("protocol.EncodeEvent: %w", err)
	}
	return b, nil
}

func decodeCards(data json.RawMessage) ([]domain.Card, error) {
	if err := wantShape(data, '['); err != nil {
		return nil, err
	}
	var cards []domain.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].ID == 0 {
			return nil, fmt.Errorf("card %d: %w", i, errMissingID)
		}
	}
	if cards == nil {
		cards = []domain.Card{}
	}
	return cards, nil
}

func decodeCard(data json.RawMessage) (domain.Card, error) {
	if err := wantShape(data, '{'); err != nil {
		return domain.Card{}, err
	}
	var card domain.Card
	if err := json.Unmarshal(data, &card); err != nil {
		return domain.Card{}, err
	}
	if card.ID == 0 {
		return domain.Card{}, errMissingID
	}
	return card, nil
}

// wantShape checks the first token of data without a full parse.
func wantShape(data json.RawMessage, open byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return errMissingData
	}
	if trimmed[0] == open {
		return nil
	}
	if open == '[' {
		return errWantArray
	}
	return errWantObject
}

func decodeErr(tag string, err error) error {
	if tag == "" {
		return fmt.Errorf("protocol.Decode: %w: %w", domain.ErrDecode, err)
	}
	return fmt.Errorf("protocol.Decode: %s: %w: %w", tag, domain.ErrDecode, err)
}
