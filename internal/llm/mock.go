package llm

import (
	"context"
	"fmt"
)

// MockClient answers locally without any upstream call. It is selected with
// CHAT_PROVIDER=mock for development without provider credentials.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ Client = (*MockClient)(nil)

// Name returns the provider name.
func (m *MockClient) Name() string {
	return string(ProviderMock)
}

// Complete echoes the last user message back as a single choice.
func (m *MockClient) Complete(ctx context.Context, req *CompletionRequest) (Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = req.Messages[i].Content
			break
		}
	}

	reply := "[MOCK] This is a mock response."
	if last != "" {
		reply = fmt.Sprintf("[MOCK] Received your message: %q.", truncate(last, 100))
	}

	return &ChoicesResponse{
		Model: req.Model,
		Choices: []Choice{
			{Message: &ChoiceMessage{Role: "assistant", Content: reply}},
		},
	}, nil
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
