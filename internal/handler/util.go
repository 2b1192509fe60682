package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatbot-backend/internal/middleware"
	"github.com/capitalize-ai/chatbot-backend/internal/service"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
)

// maxBodyBytes bounds request bodies; a full history of maximum-length
// messages still fits comfortably.
const maxBodyBytes = 4 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeFailure maps a service error to its status code. Anything that is not
// a service failure is an internal error and its text is not exposed.
func writeFailure(w http.ResponseWriter, log *logger.Logger, err error, fallback string) {
	f, ok := service.AsFailure(err)
	if !ok {
		log.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
		return
	}

	switch f.Kind {
	case service.FailureBadRequest:
		writeError(w, http.StatusBadRequest, f.Message)
	case service.FailureNotFound:
		writeError(w, http.StatusNotFound, f.Message)
	default:
		writeError(w, http.StatusInternalServerError, f.Message)
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// requestLogger returns log annotated with the caller and correlation ID.
func requestLogger(log *logger.Logger, r *http.Request) *logger.Logger {
	ctx := r.Context()
	return log.WithRequest(middleware.GetCorrelationID(ctx), middleware.GetUserID(ctx))
}
