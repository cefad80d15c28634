package protocol

import (
	"encoding/json"

	"github.com/dilenshah23/collaboration-board/internal/domain"
)

type EventType string

const (
	EventInitialState EventType = "initial_state"
	EventCardCreated  EventType = "card.created"
	EventCardUpdated  EventType = "card.updated"
	EventCardMoved    EventType = "card.moved"
	EventCardDeleted  EventType = "card.deleted"
)

// Event is a decoded inbound frame. The concrete types are InitialState,
// CardCreated, CardUpdated, CardMoved, CardDeleted and UnknownEvent.
type Event interface {
	Type() EventType
	// Origin is the user whose action produced the event, nil when the server
	// did not attribute it.
	Origin() *domain.Actor
	isEvent()
}

type InitialState struct {
	Cards []domain.Card
	User  *domain.Actor
}

type CardCreated struct {
	Card domain.Card
	User *domain.Actor
}

type CardUpdated struct {
	Card domain.Card
	User *domain.Actor
}

type CardMoved struct {
	Card domain.Card
	User *domain.Actor
}

type CardDeleted struct {
	ID      int64
	BoardID int64
	User    *domain.Actor
}

// UnknownEvent carries a frame whose type tag this client does not know.
// Subscribers ignore it so newer servers can add event types.
type UnknownEvent struct {
	Tag  string
	Data json.RawMessage
	User *domain.Actor
}

func (InitialState) Type() EventType { return EventInitialState }
func (CardCreated) Type() EventType  { return EventCardCreated }
func (CardUpdated) Type() EventType  { return EventCardUpdated }
func (CardMoved) Type() EventType    { return EventCardMoved }
func (CardDeleted) Type() EventType  { return EventCardDeleted }
func (e UnknownEvent) Type() EventType {
	return EventType(e.Tag)
}

func (e InitialState) Origin() *domain.Actor { return e.User }
func (e CardCreated) Origin() *domain.Actor  { return e.User }
func (e CardUpdated) Origin() *domain.Actor  { return e.User }
func (e CardMoved) Origin() *domain.Actor    { return e.User }
func (e CardDeleted) Origin() *domain.Actor  { return e.User }
func (e UnknownEvent) Origin() *domain.Actor { return e.User }

func (InitialState) isEvent() {}
func (CardCreated) isEvent()  {}
func (CardUpdated) isEvent()  {}
func (CardMoved) isEvent()    {}
func (CardDeleted) isEvent()  {}
func (UnknownEvent) isEvent() {}
