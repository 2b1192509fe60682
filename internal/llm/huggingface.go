package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultHuggingFaceBaseURL is the OpenAI-compatible Hugging Face inference router.
const DefaultHuggingFaceBaseURL = "https://router.huggingface.co/v1"

// maxErrorBody bounds how much of a failed response body ends up in an error.
const maxErrorBody = 512

// APIError is a non-2xx answer from a provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// HuggingFaceClient talks to the Hugging Face inference API. The body is
// kept raw so that both chat-completion and text-generation shapes survive
// until normalization.
type HuggingFaceClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHuggingFaceClient creates a new Hugging Face client.
func NewHuggingFaceClient(apiKey, baseURL string) (*HuggingFaceClient, error) {
	if apiKey == "" {
		return nil, errors.New("Hugging Face API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultHuggingFaceBaseURL
	}

	return &HuggingFaceClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}, nil
}

// Name returns the provider name.
func (c *HuggingFaceClient) Name() string {
	return string(ProviderHuggingFace)
}

type hfChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

// Complete sends a chat completion request.
func (c *HuggingFaceClient) Complete(ctx context.Context, req *CompletionRequest) (Response, error) {
	body, err := json.Marshal(hfChatRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: TruncateBytes(string(data), maxErrorBody)}
	}

	return DecodeResponse(data), nil
}
