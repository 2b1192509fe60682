package service

import (
	"strings"

	"github.com/capitalize-ai/chatbot-backend/internal/model"
)

const titleWords = 6

// GenerateTitle derives a display title from the first message of a
// conversation: its first six words, with "..." when there were more.
func GenerateTitle(firstMessage string) string {
	words := strings.Fields(firstMessage)
	if len(words) == 0 {
		return model.DefaultTitle
	}
	if len(words) <= titleWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:titleWords], " ") + "..."
}
