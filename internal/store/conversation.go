package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/capitalize-ai/chatbot-backend/internal/model"
)

// CreateConversation creates an empty conversation owned by userID.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
		Messages:  []model.Message{},
	}
	if err := s.db.WithContext(ctx).Omit("Messages").Create(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// GetConversation returns the conversation only if userID owns it.
func (s *Store) GetConversation(ctx context.Context, id, userID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &conv, nil
}

// GetConversationWithMessages returns an owned conversation with its messages in order.
func (s *Store) GetConversationWithMessages(ctx context.Context, id, userID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("id = ? AND user_id = ?", id, userID).
		First(&conv).Error
	if err != nil {
		return nil, notFound(err)
	}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	return &conv, nil
}

// ListConversations returns the user's conversations, newest first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

// DeleteConversation removes an owned conversation and its messages.
func (s *Store) DeleteConversation(ctx context.Context, id, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&conv).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("conversation_id = ?", conv.ID).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Where("id = ?", conv.ID).Delete(&model.Conversation{}).Error; err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		return nil
	})
}

// DeleteAllConversations removes every conversation owned by userID and
// returns how many were deleted.
func (s *Store) DeleteAllConversations(ctx context.Context, userID string) (int64, error) {
	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&model.Conversation{}).Where("user_id = ?", userID).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to find conversations: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Where("conversation_id IN ?", ids).Delete(&model.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		res := tx.Where("id IN ?", ids).Delete(&model.Conversation{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete conversations: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
