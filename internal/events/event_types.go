package events

import (
	"time"

	"github.com/userkit/user-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserCreated EventType = "user_created"
	EventUserUpdated EventType = "user_updated"
	EventUserDeleted EventType = "user_deleted"
)

// Event represents a user lifecycle change emitted by the user service.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	UserID    string          `json:"user_id"`
	Actor     domain.Identity `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   interface{}     `json:"payload,omitempty"`
}

// UserChangedPayload carries the state after a create or update.
type UserChangedPayload struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
