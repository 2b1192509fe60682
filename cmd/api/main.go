// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatbot-backend/internal/config"
	"github.com/capitalize-ai/chatbot-backend/internal/handler"
	"github.com/capitalize-ai/chatbot-backend/internal/llm"
	natsclient "github.com/capitalize-ai/chatbot-backend/internal/nats"
	"github.com/capitalize-ai/chatbot-backend/internal/service"
	"github.com/capitalize-ai/chatbot-backend/internal/store"
	"github.com/capitalize-ai/chatbot-backend/pkg/logger"
	"github.com/capitalize-ai/chatbot-backend/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	log.Info("starting API server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatbot-backend", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() { _ = tracing.Shutdown(context.Background(), tp) }()
		}
	}

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatal("failed to open database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Event publishing is optional.
	var (
		events    service.EventPublisher
		readiness handler.Connectivity
	)
	if cfg.NATSURL != "" {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		events = streamManager
		readiness = natsClient
	} else {
		log.Info("NATS_URL not set, conversation events disabled")
	}

	chatClient, err := newChatClient(cfg)
	if err != nil {
		log.Fatal("failed to create chat client", zap.String("provider", cfg.ChatProvider), zap.Error(err))
	}
	simpleClient, simpleModel, err := newSimpleClient(cfg, chatClient)
	if err != nil {
		log.Fatal("failed to create simple chat client", zap.Error(err))
	}
	log.Info("LLM clients ready",
		zap.String("chat_provider", chatClient.Name()),
		zap.String("chat_model", cfg.ChatModel),
		zap.String("simple_provider", simpleClient.Name()),
		zap.String("simple_model", simpleModel),
	)

	conversationSvc := service.NewConversationService(db, events, log)
	chatSvc := service.NewChatService(db, conversationSvc, chatClient, simpleClient, events, service.ChatConfig{
		Model:       cfg.ChatModel,
		MaxTokens:   cfg.ChatMaxTokens,
		SimpleModel: simpleModel,
	}, log)

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         log,
		Health:         handler.NewHealthHandler(db, readiness),
		Chat:           handler.NewChatHandler(chatSvc, log),
		Conversations:  handler.NewConversationHandler(conversationSvc, log),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// newChatClient builds the provider behind the history-aware endpoint.
func newChatClient(cfg *config.Config) (llm.Client, error) {
	provider := llm.Provider(strings.ToLower(cfg.ChatProvider))
	var opts llm.Options
	switch provider {
	case llm.ProviderOpenAI:
		opts = llm.Options{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL}
	case llm.ProviderAnthropic:
		opts = llm.Options{APIKey: cfg.AnthropicAPIKey}
	case llm.ProviderMock:
	default:
		opts = llm.Options{APIKey: cfg.HFAPIKey, BaseURL: cfg.HFBaseURL}
	}
	return llm.NewClient(provider, opts)
}

// newSimpleClient uses OpenAI with the simple model when a key is
// configured. Otherwise it shares the history-aware provider and model.
func newSimpleClient(cfg *config.Config, fallback llm.Client) (llm.Client, string, error) {
	if cfg.OpenAIAPIKey == "" {
		return fallback, cfg.ChatModel, nil
	}
	client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if err != nil {
		return nil, "", err
	}
	return client, cfg.SimpleChatModel, nil
}
