package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/capitalize-ai/chatbot-backend/internal/llm"
	"github.com/capitalize-ai/chatbot-backend/internal/model"
	"github.com/capitalize-ai/chatbot-backend/internal/store"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
	"github.com/capitalize-ai/chatbot-backend/pkg/metrics"
)

type fakeClient struct {
	resp  llm.Response
	err   error
	calls []*llm.CompletionRequest
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Complete(_ context.Context, req *llm.CompletionRequest) (llm.Response, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func replyWith(texts ...string) llm.Response {
	choices := make([]llm.Choice, len(texts))
	for i, t := range texts {
		choices[i] = llm.Choice{Message: &llm.ChoiceMessage{Role: "assistant", Content: t}}
	}
	return &llm.ChoicesResponse{Model: "fake-model", Choices: choices}
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*model.Message
	events   []*model.ConversationEvent
}

func (p *recordingPublisher) PublishMessage(_ context.Context, _ string, msg *model.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) PublishEvent(_ context.Context, event *model.ConversationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// brokenMessages stores conversations but fails every message write.
type brokenMessages struct {
	*store.Store
}

func (brokenMessages) CreateMessage(context.Context, string, model.Role, string) (*model.Message, error) {
	return nil, errors.New("disk full")
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open("sqlite", fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type fixture struct {
	store  *store.Store
	client *fakeClient
	events *recordingPublisher
	convs  *ConversationService
	chat   *ChatService
	log    *logger.Logger
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newTestStore(t)
	core, logs := observer.New(zap.InfoLevel)
	f := &fixture{
		store:  st,
		client: &fakeClient{resp: replyWith("hi!")},
		events: &recordingPublisher{},
		log:    &logger.Logger{Logger: zap.New(core)},
		logs:   logs,
	}
	f.convs = NewConversationService(st, f.events, f.log)
	f.chat = NewChatService(st, f.convs, f.client, nil, f.events, ChatConfig{
		Model:       "deepseek-ai/DeepSeek-V3-0324",
		MaxTokens:   512,
		SimpleModel: "gpt-4o-mini",
	}, f.log)
	return f
}

func requireFailure(t *testing.T, err error, kind FailureKind) *Failure {
	t.Helper()
	require.Error(t, err)
	f, ok := AsFailure(err)
	require.True(t, ok, "expected a *Failure, got %T", err)
	assert.Equal(t, kind, f.Kind)
	return f
}

func TestGenerateTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", model.DefaultTitle},
		{"   \n\t", model.DefaultTitle},
		{"hello there", "hello there"},
		{"  spaced   out\twords  ", "spaced out words"},
		{"one two three four five six", "one two three four five six"},
		{"one two three four five six seven", "one two three four five six..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GenerateTitle(tt.in), "input %q", tt.in)
	}
}

func TestAssemblePrompt(t *testing.T) {
	history := []llm.ChatMessage{
		{Role: "user", Content: "earlier"},
		{Role: "assistant", Content: "answer"},
	}
	incoming := []model.ChatMessage{
		{Role: model.RoleUser, Content: "now"},
		{Role: "narrator", Content: "passed through"},
	}

	got := AssemblePrompt(AssistantInstruction, history, incoming)
	require.Len(t, got, 5)
	assert.Equal(t, llm.ChatMessage{Role: "system", Content: AssistantInstruction}, got[0])
	assert.Equal(t, history, got[1:3])
	assert.Equal(t, llm.ChatMessage{Role: "user", Content: "now"}, got[3])
	assert.Equal(t, llm.ChatMessage{Role: "narrator", Content: "passed through"}, got[4])

	only := AssemblePrompt(SimpleInstruction, nil, nil)
	assert.Equal(t, []llm.ChatMessage{{Role: "system", Content: SimpleInstruction}}, only)
}

func TestSendCreatesConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.chat.Send(ctx, "alice", &model.ThreadedChatRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello there"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi!"}, resp.Replies)
	require.NotNil(t, resp.ConversationID)

	conv, err := f.store.GetConversationWithMessages(ctx, *resp.ConversationID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hello there", conv.Title)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hello there", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "hi!", conv.Messages[1].Content)

	require.Len(t, f.client.calls, 1)
	call := f.client.calls[0]
	assert.Equal(t, "deepseek-ai/DeepSeek-V3-0324", call.Model)
	assert.Equal(t, 512, call.MaxTokens)
	assert.Equal(t, []llm.ChatMessage{
		{Role: "system", Content: AssistantInstruction},
		{Role: "user", Content: "hello there"},
	}, call.Messages)

	assert.Len(t, f.events.messages, 2)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, model.EventTypeCreated, f.events.events[0].Type)
}

func TestSendContinuesConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.chat.Send(ctx, "alice", &model.ThreadedChatRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello there"}},
	})
	require.NoError(t, err)

	f.client.resp = replyWith("second answer")
	second, err := f.chat.Send(ctx, "alice", &model.ThreadedChatRequest{
		Messages:       []model.ChatMessage{{Role: model.RoleUser, Content: "and again"}},
		ConversationID: first.ConversationID,
	})
	require.NoError(t, err)
	assert.Equal(t, *first.ConversationID, *second.ConversationID)

	require.Len(t, f.client.calls, 2)
	assert.Equal(t, []llm.ChatMessage{
		{Role: "system", Content: AssistantInstruction},
		{Role: "user", Content: "hello there"},
		{Role: "assistant", Content: "hi!"},
		{Role: "user", Content: "and again"},
	}, f.client.calls[1].Messages)

	msgs, err := f.store.ListMessages(ctx, *first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestSendOnlyPersistsUserRoleMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.chat.Send(ctx, "alice", &model.ThreadedChatRequest{
		Messages: []model.ChatMessage{
			{Role: model.RoleSystem, Content: "pretend"},
			{Role: model.RoleAssistant, Content: "made up"},
			{Role: model.RoleUser, Content: "real question"},
		},
	})
	require.NoError(t, err)

	msgs, err := f.store.ListMessages(ctx, *resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "real question", msgs[0].Content)
	assert.Equal(t, "hi!", msgs[1].Content)

	conv, err := f.store.GetConversation(ctx, *resp.ConversationID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "real question", conv.Title)
}

func TestSendForeignConversation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	conv, err := f.store.CreateConversation(ctx, "alice", "private")
	require.NoError(t, err)

	_, err = f.chat.Send(ctx, "mallory", &model.ThreadedChatRequest{
		Messages:       []model.ChatMessage{{Role: model.RoleUser, Content: "let me in"}},
		ConversationID: &conv.ID,
	})
	fail := requireFailure(t, err, FailureNotFound)
	assert.Equal(t, "conversation not found", fail.Message)

	unknown := "does-not-exist"
	_, err = f.chat.Send(ctx, "mallory", &model.ThreadedChatRequest{
		Messages:       []model.ChatMessage{{Role: model.RoleUser, Content: "let me in"}},
		ConversationID: &unknown,
	})
	requireFailure(t, err, FailureNotFound)

	assert.Empty(t, f.client.calls)
	msgs, err := f.store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	someID := "ignored"
	resp, err := f.chat.Send(ctx, "", &model.ThreadedChatRequest{
		Messages:       []model.ChatMessage{{Role: model.RoleUser, Content: "who am I"}},
		ConversationID: &someID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi!"}, resp.Replies)
	assert.Nil(t, resp.ConversationID)

	convs, err := f.store.ListConversations(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, convs)
	assert.Empty(t, f.events.messages)
	assert.Empty(t, f.events.events)

	require.Len(t, f.client.calls, 1)
	assert.Len(t, f.client.calls[0].Messages, 2)
}

func TestSendBadRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.chat.Send(context.Background(), "alice", &model.ThreadedChatRequest{})
	fail := requireFailure(t, err, FailureBadRequest)
	assert.Equal(t, "No messages provided", fail.Message)

	_, err = f.chat.Send(context.Background(), "alice", nil)
	requireFailure(t, err, FailureBadRequest)

	assert.Empty(t, f.client.calls)
}

func TestSendUpstreamError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client.resp = nil
	f.client.err = errors.New("connection reset")

	_, err := f.chat.Send(ctx, "alice", &model.ThreadedChatRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello"}},
	})
	fail := requireFailure(t, err, FailureUpstream)
	assert.Equal(t, "failed to generate reply", fail.Message)
	assert.ErrorContains(t, err, "connection reset")

	// the conversation was resolved before the provider call
	convs, err := f.store.ListConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	msgs, err := f.store.ListMessages(ctx, convs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.Len(t, f.events.events, 2)
	failed := f.events.events[1]
	assert.Equal(t, model.EventTypeGenerationFailed, failed.Type)
	assert.Equal(t, "connection reset", failed.Reason)

	entries := f.logs.FilterMessage("completion failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "fake", fields["provider"])
	assert.Equal(t, "connection reset", fields["error"])
	assert.Empty(t, f.logs.FilterMessage("no reply extracted from provider response").All())
}

func TestSendUpstreamErrorReasonIsValidUTF8(t *testing.T) {
	f := newFixture(t)
	f.client.resp = nil
	f.client.err = errors.New("x" + strings.Repeat("é", maxReasonBytes))

	_, err := f.chat.Send(context.Background(), "alice", &model.ThreadedChatRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello"}},
	})
	requireFailure(t, err, FailureUpstream)

	require.Len(t, f.events.events, 2)
	reason := f.events.events[1].Reason
	assert.LessOrEqual(t, len(reason), maxReasonBytes)
	assert.True(t, utf8.ValidString(reason))
	assert.True(t, strings.HasPrefix(f.client.err.Error(), reason))
}

func TestSendZeroReplies(t *testing.T) {
	f := newFixture(t)

	for _, resp := range []llm.Response{
		&llm.UnrecognizedResponse{Raw: []byte(`{"unexpected":true}`)},
		replyWith("", ""),
		&llm.TextResponse{},
	} {
		f.client.resp = resp
		_, err := f.chat.Send(context.Background(), "", &model.ThreadedChatRequest{
			Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello"}},
		})
		fail := requireFailure(t, err, FailureUpstream)
		assert.ErrorIs(t, fail, llm.ErrNoReply)
		assert.Equal(t, "failed to generate reply", fail.Message)
	}

	entries := f.logs.FilterMessage("no reply extracted from provider response").All()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"unrecognized", "choices", "generated_text"}, []string{
		entries[0].ContextMap()["shape"].(string),
		entries[1].ContextMap()["shape"].(string),
		entries[2].ContextMap()["shape"].(string),
	})
	assert.Empty(t, f.logs.FilterMessage("completion failed").All())
}

func TestSendMultipleReplies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.client.resp = replyWith("one", "", "two")

	resp, err := f.chat.Send(ctx, "alice", &model.ThreadedChatRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, resp.Replies)

	msgs, err := f.store.ListMessages(ctx, *resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[1].Content)
	assert.Equal(t, "two", msgs[2].Content)
}

func TestSendPersistenceFailureStillReplies(t *testing.T) {
	f := newFixture(t)
	broken := brokenMessages{Store: f.store}
	f.convs = NewConversationService(broken, f.events, f.log)
	f.chat = NewChatService(broken, f.convs, f.client, nil, f.events, ChatConfig{Model: "m"}, f.log)
	before := testutil.ToFloat64(metrics.PersistenceFailuresTotal)

	resp, err := f.chat.Send(context.Background(), "alice", &model.ThreadedChatRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hi!"}, resp.Replies)
	require.NotNil(t, resp.ConversationID)
	assert.Empty(t, f.events.messages)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.PersistenceFailuresTotal)-before)

	entries := f.logs.FilterMessage("failed to persist message").All()
	require.Len(t, entries, 2)
	for i, role := range []model.Role{model.RoleUser, model.RoleAssistant} {
		fields := entries[i].ContextMap()
		assert.Equal(t, *resp.ConversationID, fields["conversation_id"])
		assert.Equal(t, string(role), fields["role"])
		assert.Equal(t, "disk full", fields["error"])
	}
}

func TestReply(t *testing.T) {
	f := newFixture(t)
	simple := &fakeClient{resp: replyWith("howdy", "ignored")}
	f.chat = NewChatService(f.store, f.convs, f.client, simple, f.events, ChatConfig{SimpleModel: "gpt-4o-mini"}, logger.NewNop())

	resp, err := f.chat.Reply(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "howdy", resp.Reply)

	require.Len(t, simple.calls, 1)
	assert.Equal(t, "gpt-4o-mini", simple.calls[0].Model)
	assert.Equal(t, []llm.ChatMessage{
		{Role: "system", Content: SimpleInstruction},
		{Role: "user", Content: "hi"},
	}, simple.calls[0].Messages)
	assert.Empty(t, f.client.calls)

	_, err = f.chat.Reply(context.Background(), "")
	fail := requireFailure(t, err, FailureBadRequest)
	assert.Equal(t, "No message provided", fail.Message)

	simple.resp, simple.err = nil, errors.New("boom")
	_, err = f.chat.Reply(context.Background(), "hi")
	requireFailure(t, err, FailureUpstream)
}

func TestConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	conv, err := f.convs.Create(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTitle, conv.Title)

	_, err = f.convs.Create(ctx, "alice", "second")
	require.NoError(t, err)
	_, err = f.convs.Create(ctx, "bob", "not alice's")
	require.NoError(t, err)

	list, err := f.convs.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	detail, err := f.convs.Get(ctx, "alice", conv.ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.Messages)

	_, err = f.convs.Get(ctx, "bob", conv.ID)
	requireFailure(t, err, FailureNotFound)

	err = f.convs.Delete(ctx, "bob", conv.ID)
	requireFailure(t, err, FailureNotFound)

	require.NoError(t, f.convs.Delete(ctx, "alice", conv.ID))
	_, err = f.convs.Get(ctx, "alice", conv.ID)
	requireFailure(t, err, FailureNotFound)

	deleted, err := f.convs.Clear(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	list, err = f.convs.List(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	var types []model.EventType
	for _, e := range f.events.events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []model.EventType{
		model.EventTypeCreated, model.EventTypeCreated, model.EventTypeCreated,
		model.EventTypeDeleted, model.EventTypeCleared,
	}, types)
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "bad_request", FailureBadRequest.String())
	assert.Equal(t, "not_found", FailureNotFound.String())
	assert.Equal(t, "upstream_failure", FailureUpstream.String())
	assert.Equal(t, "unknown", FailureKind(0).String())
}
