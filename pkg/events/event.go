package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_SESSION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used by all concrete constructors.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeChatSessionCreated = "CHAT_SESSION_CREATED"
	TypeChatSessionRenamed = "CHAT_SESSION_RENAMED"
	TypeChatSessionDeleted = "CHAT_SESSION_DELETED"
)

func NewChatSessionCreated(sessionId, ownerEmail, title string) Event {
	return BaseEvent{
		Type: TypeChatSessionCreated,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"owner_email": ownerEmail,
			"title":       title,
		},
		OccurredAt: time.Now(),
	}
}

func NewChatSessionRenamed(sessionId, ownerEmail, title string) Event {
	return BaseEvent{
		Type: TypeChatSessionRenamed,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"owner_email": ownerEmail,
			"title":       title,
		},
		OccurredAt: time.Now(),
	}
}

func NewChatSessionDeleted(sessionId, ownerEmail string) Event {
	return BaseEvent{
		Type: TypeChatSessionDeleted,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"owner_email": ownerEmail,
		},
		OccurredAt: time.Now(),
	}
}
