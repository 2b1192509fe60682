package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/chatbot-backend/internal/middleware"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
)

// RouterConfig collects what the HTTP surface needs.
type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         *logger.Logger
	Health         *HealthHandler
	Chat           *ChatHandler
	Conversations  *ConversationHandler
}

// NewRouter builds the API router. Paths are matched with or without a
// trailing slash.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", cfg.Chat.Chat)
		r.With(middleware.OptionalAuth(cfg.JWTSecret)).Post("/chathf", cfg.Chat.ChatHF)

		r.Route("/conversations", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			r.Get("/", cfg.Conversations.List)
			r.Post("/", cfg.Conversations.Create)
			r.Delete("/clear", cfg.Conversations.Clear)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Conversations.Get)
				r.Delete("/", cfg.Conversations.Delete)
				r.Delete("/delete", cfg.Conversations.Delete)
			})
		})
	})

	return r
}
