package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/chatbot-backend/internal/model"
)

const (
	// StreamName is the name of the chat events stream.
	StreamName = "CHAT_EVENTS"

	// SubjectPrefix is the prefix for all chat subjects.
	SubjectPrefix = "chat"
)

// StreamManager publishes conversation activity to JetStream.
type StreamManager struct {
	js jetstream.JetStream
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{js: client.JetStream()}
}

// EnsureStream ensures the events stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := m.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Conversation lifecycle events and persisted chat messages",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// subjectToken makes an arbitrary id safe to use as one subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// MessageSubject returns the subject for a persisted message.
func MessageSubject(userID, conversationID string, role model.Role) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, subjectToken(userID), subjectToken(conversationID), subjectToken(string(role)))
}

// EventSubject returns the subject for a conversation event.
func EventSubject(userID, conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, subjectToken(userID), subjectToken(conversationID), eventType)
}

// messageEvent is the wire form of a persisted message. Unlike the HTTP
// form it names the conversation and owner.
type messageEvent struct {
	ID             uint64     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	UserID         string     `json:"user_id,omitempty"`
	Role           model.Role `json:"role"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"created_at"`
}

func encodeMessage(userID string, msg *model.Message) ([]byte, error) {
	return json.Marshal(messageEvent{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		UserID:         userID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	})
}

// PublishMessage publishes a persisted message.
func (m *StreamManager) PublishMessage(ctx context.Context, userID string, msg *model.Message) error {
	data, err := encodeMessage(userID, msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := m.js.Publish(ctx, MessageSubject(userID, msg.ConversationID, msg.Role), data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishEvent publishes a conversation event.
func (m *StreamManager) PublishEvent(ctx context.Context, event *model.ConversationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := m.js.Publish(ctx, EventSubject(event.UserID, event.ConversationID, event.Type), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
