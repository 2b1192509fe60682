package model

import (
	"time"
)

// EventType represents the type of conversation event.
type EventType string

const (
	EventTypeCreated          EventType = "created"
	EventTypeDeleted          EventType = "deleted"
	EventTypeCleared          EventType = "cleared"
	EventTypeGenerationFailed EventType = "generation_failed"
)

// ConversationEvent is a lifecycle event published to the event log.
type ConversationEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	UserID         string         `json:"user_id"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
