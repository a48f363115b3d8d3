// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// AuditQueueName is the durable queue that carries AuthEvent messages.
const AuditQueueName = "auth.events"

// Event types.  The three flow types match auth.Flow values.
const (
	EventLogin           = "login"
	EventRefresh         = "refresh"
	EventLogout          = "logout"
	EventUserCreated     = "user.created"
	EventUserUpdated     = "user.updated"
	EventUserDeleted     = "user.deleted"
	EventPasswordChanged = "password.changed"
)

// AuthEvent is published after an auth flow or a change to a user record.
// It never carries passwords, tokens or hashes.
type AuthEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Result     string `json:"result"`
	UserID     string `json:"user_id,omitempty"`
	ActorID    string `json:"actor_id,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// NewAuthEvent stamps an event with a ULID and the current UTC time.
// ULIDs sort by creation time, so the audit log can be ordered by id.
func NewAuthEvent(typ, result, userID, actorID string) AuthEvent {
	return AuthEvent{
		ID:         ulid.Make().String(),
		Type:       typ,
		Result:     result,
		UserID:     userID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
