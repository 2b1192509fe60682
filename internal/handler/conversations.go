// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/chatbot-backend/internal/middleware"
	"github.com/capitalize-ai/chatbot-backend/internal/model"
	"github.com/capitalize-ai/chatbot-backend/internal/service"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
)

// ConversationHandler handles conversation endpoints. Every route requires
// an authenticated caller and only sees that caller's conversations.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// Create handles POST /api/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CreateConversationRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.service.Create(ctx, userID, req.Title)
	if err != nil {
		writeFailure(w, requestLogger(h.logger, r), err, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := h.service.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeFailure(w, requestLogger(h.logger, r), err, "failed to list conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conv, err := h.service.Get(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, requestLogger(h.logger, r), err, "failed to get conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// Delete handles DELETE /api/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Delete(ctx, middleware.GetUserID(ctx), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, requestLogger(h.logger, r), err, "failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /api/conversations/clear
func (h *ConversationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deleted, err := h.service.Clear(ctx, middleware.GetUserID(ctx))
	if err != nil {
		writeFailure(w, requestLogger(h.logger, r), err, "failed to clear conversations")
		return
	}

	writeJSON(w, http.StatusOK, model.ClearConversationsResponse{Deleted: deleted})
}
