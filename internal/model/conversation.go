// Package model defines data structures for the chat backend.
package model

import (
	"time"
)

// DefaultTitle is used when a conversation has no first message to derive a title from.
const DefaultTitle = "New Conversation"

// Conversation is a titled, user-owned thread of messages.
type Conversation struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;index" json:"-"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	Messages  []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages"`
}

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary projects the conversation to its list view.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{ID: c.ID, Title: c.Title, CreatedAt: c.CreatedAt}
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// ClearConversationsResponse reports how many conversations were removed.
type ClearConversationsResponse struct {
	Deleted int64 `json:"deleted"`
}
