package llm

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNoReply is returned by Normalize when a response yields no usable text.
var ErrNoReply = errors.New("no reply generated")

// Response is a provider response. It is one of *ChoicesResponse,
// *TextResponse or *UnrecognizedResponse.
type Response interface {
	// Shape names the variant, for logs and metrics.
	Shape() string
	isResponse()
}

// ChoicesResponse is a chat-completion style body carrying a choices list.
// GeneratedText is set when the same body also had a top-level
// generated_text field, which serves as a fallback.
type ChoicesResponse struct {
	Model         string
	Choices       []Choice
	GeneratedText *string
}

// Choice is one candidate reply. Text is read from Message.Content when
// present, otherwise from Content.
type Choice struct {
	Message *ChoiceMessage `json:"message,omitempty"`
	Content string         `json:"content,omitempty"`
}

// ChoiceMessage is the nested message object of a choice.
type ChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TextResponse is a text-generation style body with a single generated_text.
type TextResponse struct {
	GeneratedText string
}

// UnrecognizedResponse holds a body that matched no known shape, including
// bodies that were not valid JSON at all.
type UnrecognizedResponse struct {
	Raw []byte
}

func (*ChoicesResponse) Shape() string      { return "choices" }
func (*TextResponse) Shape() string         { return "generated_text" }
func (*UnrecognizedResponse) Shape() string { return "unrecognized" }

func (*ChoicesResponse) isResponse()      {}
func (*TextResponse) isResponse()         {}
func (*UnrecognizedResponse) isResponse() {}

// Text returns the choice's reply text.
func (c Choice) Text() string {
	if c.Message != nil && c.Message.Content != "" {
		return c.Message.Content
	}
	return c.Content
}

// DecodeResponse classifies a raw provider body into one of the known shapes.
func DecodeResponse(body []byte) Response {
	trimmed := bytes.TrimSpace(body)

	// Text-generation endpoints may answer with a one element list.
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []struct {
			GeneratedText *string `json:"generated_text"`
		}
		if err := json.Unmarshal(trimmed, &list); err == nil && len(list) > 0 && list[0].GeneratedText != nil {
			return &TextResponse{GeneratedText: *list[0].GeneratedText}
		}
		return &UnrecognizedResponse{Raw: body}
	}

	var envelope struct {
		Model         string   `json:"model"`
		Choices       []Choice `json:"choices"`
		GeneratedText *string  `json:"generated_text"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return &UnrecognizedResponse{Raw: body}
	}

	switch {
	case envelope.Choices != nil:
		return &ChoicesResponse{Model: envelope.Model, Choices: envelope.Choices, GeneratedText: envelope.GeneratedText}
	case envelope.GeneratedText != nil:
		return &TextResponse{GeneratedText: *envelope.GeneratedText}
	default:
		return &UnrecognizedResponse{Raw: body}
	}
}

// Normalize extracts the ordered, non-empty replies from a response. Choices
// are tried first; generated_text is the fallback. ErrNoReply is returned when
// nothing could be extracted, including for unrecognized shapes.
func Normalize(resp Response) ([]string, error) {
	var replies []string

	switch r := resp.(type) {
	case *ChoicesResponse:
		for _, choice := range r.Choices {
			if text := choice.Text(); text != "" {
				replies = append(replies, text)
			}
		}
		if len(replies) == 0 && r.GeneratedText != nil && *r.GeneratedText != "" {
			replies = append(replies, *r.GeneratedText)
		}
	case *TextResponse:
		if r.GeneratedText != "" {
			replies = append(replies, r.GeneratedText)
		}
	}

	if len(replies) == 0 {
		return nil, ErrNoReply
	}
	return replies, nil
}
