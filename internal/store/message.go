package store

import (
	"context"
	"fmt"
	"time"

	"github.com/capitalize-ai/chatbot-backend/internal/model"
)

// CreateMessage appends a message to a conversation.
func (s *Store) CreateMessage(ctx context.Context, conversationID string, role model.Role, content string) (*model.Message, error) {
	msg := &model.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a conversation's messages in insertion order.
// Callers are responsible for checking ownership of the conversation.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]model.Message, error) {
	var messages []model.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}
