package service

import (
	"context"

	"github.com/capitalize-ai/chatbot-backend/internal/model"
)

// EventPublisher receives conversation activity. Publishing is best-effort:
// errors are logged and never fail the request.
type EventPublisher interface {
	PublishMessage(ctx context.Context, userID string, msg *model.Message) error
	PublishEvent(ctx context.Context, event *model.ConversationEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishMessage(context.Context, string, *model.Message) error { return nil }
func (nopPublisher) PublishEvent(context.Context, *model.ConversationEvent) error  { return nil }
