package middleware

import (
	"errors"
	"unicode/utf8"
)

const (
	// MaxContentLength bounds a single message body.
	MaxContentLength = 100000
	// MaxTitleLength bounds a conversation title.
	MaxTitleLength = 256
)

// ValidateMessageContent validates message content. Empty content is left
// to the chat service, which reports it as a missing message.
func ValidateMessageContent(content string) error {
	if len(content) > MaxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > MaxTitleLength {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
