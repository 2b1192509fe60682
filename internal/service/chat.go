package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatbot-backend/internal/llm"
	"github.com/capitalize-ai/chatbot-backend/internal/model"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
	"github.com/capitalize-ai/chatbot-backend/pkg/metrics"
)

var tracer = otel.Tracer("github.com/capitalize-ai/chatbot-backend/internal/service")

// maxReasonBytes bounds the failure reason carried by events.
const maxReasonBytes = 256

// ChatConfig selects the models used for each chat flavour.
type ChatConfig struct {
	Model       string
	MaxTokens   int
	SimpleModel string
}

// ChatService generates replies and threads them into conversations.
type ChatService struct {
	store         Store
	conversations *ConversationService
	client        llm.Client
	simpleClient  llm.Client
	events        EventPublisher
	cfg           ChatConfig
	logger        *logger.Logger
}

// NewChatService creates a new chat service. simpleClient serves the
// single-message endpoint and defaults to client when nil.
func NewChatService(
	st Store,
	conversations *ConversationService,
	client llm.Client,
	simpleClient llm.Client,
	events EventPublisher,
	cfg ChatConfig,
	log *logger.Logger,
) *ChatService {
	if simpleClient == nil {
		simpleClient = client
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &ChatService{
		store:         st,
		conversations: conversations,
		client:        client,
		simpleClient:  simpleClient,
		events:        events,
		cfg:           cfg,
		logger:        log,
	}
}

// Reply answers a single message without history or persistence.
func (s *ChatService) Reply(ctx context.Context, message string) (*model.ChatResponse, error) {
	if message == "" {
		return nil, badRequest(msgNoMessage)
	}

	prompt := AssemblePrompt(SimpleInstruction, nil, []model.ChatMessage{
		{Role: model.RoleUser, Content: message},
	})

	replies, err := s.generate(ctx, s.simpleClient, &llm.CompletionRequest{
		Model:    s.cfg.SimpleModel,
		Messages: prompt,
	})
	if err != nil {
		return nil, err
	}

	return &model.ChatResponse{Reply: replies[0]}, nil
}

// Send runs one history-aware chat turn. An empty userID means an anonymous
// caller: no conversation is resolved and nothing is stored.
func (s *ChatService) Send(ctx context.Context, userID string, req *model.ThreadedChatRequest) (*model.ThreadedChatResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, badRequest(msgNoMessages)
	}

	ctx, span := tracer.Start(ctx, "chat.send")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("chat.anonymous", userID == ""),
		attribute.Int("chat.incoming_messages", len(req.Messages)),
	)

	var (
		conversationID *string
		history        []llm.ChatMessage
	)

	if userID != "" {
		if req.ConversationID != nil && *req.ConversationID != "" {
			h, err := s.conversations.LoadHistory(ctx, userID, *req.ConversationID)
			if err != nil {
				return nil, err
			}
			history = h
			id := *req.ConversationID
			conversationID = &id
		} else {
			conv, err := s.conversations.Create(ctx, userID, GenerateTitle(firstUserContent(req.Messages)))
			if err != nil {
				return nil, err
			}
			conversationID = &conv.ID
		}
		span.SetAttributes(attribute.String("chat.conversation_id", *conversationID))
	}

	prompt := AssemblePrompt(AssistantInstruction, history, req.Messages)

	replies, err := s.generate(ctx, s.client, &llm.CompletionRequest{
		Model:     s.cfg.Model,
		Messages:  prompt,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		span.SetStatus(codes.Error, "generation failed")
		if conversationID != nil {
			s.publishGenerationFailed(ctx, userID, *conversationID, err)
		}
		return nil, err
	}

	if conversationID != nil {
		s.persist(ctx, userID, *conversationID, req.Messages, replies)
	}

	return &model.ThreadedChatResponse{
		Replies:        replies,
		ConversationID: conversationID,
	}, nil
}

// generate calls the provider and normalizes its answer. Transport errors,
// provider errors and empty answers all become one upstream failure; the
// distinction only reaches the logs.
func (s *ChatService) generate(ctx context.Context, client llm.Client, req *llm.CompletionRequest) ([]string, error) {
	ctx, span := tracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", client.Name()),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.prompt_messages", len(req.Messages)),
	)

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordCompletion(client.Name(), "error", elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.logger.Error("completion failed",
			zap.String("provider", client.Name()),
			zap.String("model", req.Model),
			zap.Error(err),
		)
		return nil, upstreamFailure(err)
	}

	replies, err := llm.Normalize(resp)
	if err != nil {
		metrics.RecordCompletion(client.Name(), "empty", elapsed)
		span.SetStatus(codes.Error, "no reply")
		s.logger.Error("no reply extracted from provider response",
			zap.String("provider", client.Name()),
			zap.String("model", req.Model),
			zap.String("shape", resp.Shape()),
		)
		return nil, upstreamFailure(err)
	}

	metrics.RecordCompletion(client.Name(), "success", elapsed)
	metrics.RecordReplies(client.Name(), resp.Shape(), len(replies))
	span.SetAttributes(
		attribute.String("llm.response_shape", resp.Shape()),
		attribute.Int("llm.replies", len(replies)),
	)

	return replies, nil
}

// persist stores the user turns then the replies, in order. Failures are
// logged and counted; the caller already has its replies.
func (s *ChatService) persist(ctx context.Context, userID, conversationID string, incoming []model.ChatMessage, replies []string) {
	for _, msg := range incoming {
		if msg.Role != model.RoleUser {
			continue
		}
		s.storeMessage(ctx, userID, conversationID, model.RoleUser, msg.Content)
	}
	for _, reply := range replies {
		s.storeMessage(ctx, userID, conversationID, model.RoleAssistant, reply)
	}
}

func (s *ChatService) storeMessage(ctx context.Context, userID, conversationID string, role model.Role, content string) {
	msg, err := s.store.CreateMessage(ctx, conversationID, role, content)
	if err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		s.logger.Error("failed to persist message",
			zap.String("conversation_id", conversationID),
			zap.String("role", string(role)),
			zap.Error(err),
		)
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(role)).Inc()

	if err := s.events.PublishMessage(ctx, userID, msg); err != nil {
		s.logger.Warn("failed to publish message",
			zap.String("conversation_id", conversationID),
			zap.Uint64("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

func (s *ChatService) publishGenerationFailed(ctx context.Context, userID, conversationID string, cause error) {
	reason := cause.Error()
	var f *Failure
	if errors.As(cause, &f) && f.Err != nil {
		reason = f.Err.Error()
	}

	event := &model.ConversationEvent{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           model.EventTypeGenerationFailed,
		Reason:         llm.TruncateBytes(reason, maxReasonBytes),
		Metadata:       map[string]any{"provider": s.client.Name(), "model": s.cfg.Model},
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish conversation event",
			zap.String("type", string(event.Type)),
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
	}
}

func firstUserContent(messages []model.ChatMessage) string {
	for _, msg := range messages {
		if msg.Role == model.RoleUser {
			return msg.Content
		}
	}
	return ""
}
