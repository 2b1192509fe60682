package service

import (
	"github.com/capitalize-ai/chatbot-backend/internal/llm"
	"github.com/capitalize-ai/chatbot-backend/internal/model"
)

const (
	// AssistantInstruction opens every history-aware chat prompt.
	AssistantInstruction = "You are a professional AI assistant that helps users with code and general questions."

	// SimpleInstruction opens every single-message chat prompt.
	SimpleInstruction = "You are a helpful chatbot."
)

// AssemblePrompt builds the provider message list: one system message with
// instruction, then history, then incoming, in that order. Roles are passed
// through unvalidated.
func AssemblePrompt(instruction string, history []llm.ChatMessage, incoming []model.ChatMessage) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, 1+len(history)+len(incoming))
	out = append(out, llm.ChatMessage{Role: string(model.RoleSystem), Content: instruction})
	out = append(out, history...)
	for _, msg := range incoming {
		out = append(out, llm.ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}
