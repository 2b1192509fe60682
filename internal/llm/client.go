// Package llm provides completion clients for upstream LLM providers.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is the interface for LLM providers. Complete blocks until the
// provider answers; any transport or provider error is returned as is.
type Client interface {
	// Complete sends a completion request and returns the provider response.
	Complete(ctx context.Context, req *CompletionRequest) (Response, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderHuggingFace Provider = "huggingface"
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderMock        Provider = "mock"
)

// Options carries provider credentials and endpoint overrides.
type Options struct {
	APIKey  string
	BaseURL string
}

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, opts Options) (Client, error) {
	switch Provider(strings.ToLower(string(provider))) {
	case ProviderHuggingFace, "hf", "":
		return NewHuggingFaceClient(opts.APIKey, opts.BaseURL)
	case ProviderOpenAI:
		return NewOpenAIClient(opts.APIKey, opts.BaseURL)
	case ProviderAnthropic:
		return NewAnthropicClient(opts.APIKey)
	case ProviderMock:
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", provider)
	}
}
