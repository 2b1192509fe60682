package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one immutable turn in a conversation.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversationID string    `gorm:"type:varchar(36);not null;index:idx_messages_conversation_created,priority:1" json:"-"`
	Role           Role      `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"not null;index:idx_messages_conversation_created,priority:2" json:"created_at"`
}

// ChatMessage is the role and content pair exchanged with clients and providers.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of the simple chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply of the simple chat endpoint.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// ThreadedChatRequest is the body of the history-aware chat endpoint.
type ThreadedChatRequest struct {
	Messages       []ChatMessage `json:"messages"`
	ConversationID *string       `json:"conversation_id"`
}

var errConversationIDType = errors.New("conversation_id must be a string or a number")

// UnmarshalJSON accepts conversation_id as a string, a number or null.
// A number is kept in its literal form.
func (r *ThreadedChatRequest) UnmarshalJSON(data []byte) error {
	type plain ThreadedChatRequest
	var raw struct {
		*plain
		ConversationID json.RawMessage `json:"conversation_id"`
	}
	raw.plain = (*plain)(r)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ConversationID = nil
	id := bytes.TrimSpace(raw.ConversationID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(id, &s); err == nil {
		r.ConversationID = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(id, &n); err == nil {
		s = n.String()
		r.ConversationID = &s
		return nil
	}
	return errConversationIDType
}

// ThreadedChatResponse carries the replies and the resolved conversation.
// ConversationID is null for anonymous callers.
type ThreadedChatResponse struct {
	Replies        []string `json:"replies"`
	ConversationID *string  `json:"conversation_id"`
}
