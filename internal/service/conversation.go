// Package service provides business logic for the chat backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatbot-backend/internal/llm"
	"github.com/capitalize-ai/chatbot-backend/internal/model"
	"github.com/capitalize-ai/chatbot-backend/internal/store"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
	"github.com/capitalize-ai/chatbot-backend/pkg/metrics"
)

// Store is the persistence the services need. Lookups scoped by user must
// return store.ErrNotFound for rows owned by someone else.
type Store interface {
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (*model.Conversation, error)
	GetConversationWithMessages(ctx context.Context, id, userID string) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	DeleteConversation(ctx context.Context, id, userID string) error
	DeleteAllConversations(ctx context.Context, userID string) (int64, error)
	CreateMessage(ctx context.Context, conversationID string, role model.Role, content string) (*model.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// ConversationService handles conversation operations.
type ConversationService struct {
	store  Store
	events EventPublisher
	logger *logger.Logger
}

// NewConversationService creates a new conversation service. A nil
// publisher disables event publishing.
func NewConversationService(st Store, events EventPublisher, log *logger.Logger) *ConversationService {
	if events == nil {
		events = nopPublisher{}
	}
	return &ConversationService{
		store:  st,
		events: events,
		logger: log,
	}
}

// Create creates a new conversation. An empty title falls back to the default.
func (s *ConversationService) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	if title == "" {
		title = model.DefaultTitle
	}

	conv, err := s.store.CreateConversation(ctx, userID, title)
	if err != nil {
		return nil, err
	}
	metrics.ConversationsTotal.Inc()

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.String("user_id", userID),
	)
	s.publishEvent(ctx, userID, conv.ID, model.EventTypeCreated, "")

	return conv, nil
}

// Get retrieves an owned conversation with its messages.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := s.store.GetConversationWithMessages(ctx, conversationID, userID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return conv, nil
}

// List retrieves the user's conversations, newest first. The result is
// never nil so an empty list encodes as [].
func (s *ConversationService) List(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]model.ConversationSummary, len(convs))
	for i := range convs {
		summaries[i] = convs[i].Summary()
	}

	return summaries, nil
}

// Delete removes one owned conversation and its messages.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	if err := s.store.DeleteConversation(ctx, conversationID, userID); err != nil {
		return mapNotFound(err)
	}

	s.logger.Info("conversation deleted",
		zap.String("conversation_id", conversationID),
		zap.String("user_id", userID),
	)
	s.publishEvent(ctx, userID, conversationID, model.EventTypeDeleted, "")

	return nil
}

// Clear removes all of the user's conversations.
func (s *ConversationService) Clear(ctx context.Context, userID string) (int64, error) {
	deleted, err := s.store.DeleteAllConversations(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("conversations cleared",
		zap.String("user_id", userID),
		zap.Int64("deleted", deleted),
	)
	s.publishEvent(ctx, userID, "", model.EventTypeCleared, fmt.Sprintf("%d conversations", deleted))

	return deleted, nil
}

// LoadHistory returns the messages of an owned conversation as provider
// messages, oldest first. Unknown and foreign ids both yield a NotFound failure.
func (s *ConversationService) LoadHistory(ctx context.Context, userID, conversationID string) ([]llm.ChatMessage, error) {
	if _, err := s.store.GetConversation(ctx, conversationID, userID); err != nil {
		return nil, mapNotFound(err)
	}

	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	history := make([]llm.ChatMessage, len(messages))
	for i, msg := range messages {
		history[i] = llm.ChatMessage{Role: string(msg.Role), Content: msg.Content}
	}
	return history, nil
}

func (s *ConversationService) publishEvent(ctx context.Context, userID, conversationID string, eventType model.EventType, reason string) {
	event := &model.ConversationEvent{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           eventType,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish conversation event",
			zap.String("type", string(eventType)),
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(err)
	}
	return err
}
