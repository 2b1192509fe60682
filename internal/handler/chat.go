package handler

import (
	"net/http"

	"github.com/capitalize-ai/chatbot-backend/internal/middleware"
	"github.com/capitalize-ai/chatbot-backend/internal/model"
	"github.com/capitalize-ai/chatbot-backend/internal/service"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
)

// ChatHandler handles the chat endpoints.
type ChatHandler struct {
	service *service.ChatService
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		service: svc,
		logger:  log,
	}
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Reply(r.Context(), req.Message)
	if err != nil {
		writeFailure(w, requestLogger(h.logger, r), err, "failed to generate reply")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ChatHF handles POST /api/chathf. Authentication is optional: anonymous
// callers get replies but nothing is stored.
func (h *ChatHandler) ChatHF(w http.ResponseWriter, r *http.Request) {
	var req model.ThreadedChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, msg := range req.Messages {
		if err := middleware.ValidateMessageContent(msg.Content); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	resp, err := h.service.Send(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		writeFailure(w, requestLogger(h.logger, r), err, "failed to generate reply")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
