// Package config provides environment configuration for the API server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	CORSAllowedOrigins []string

	// Database settings
	DatabaseDriver string
	DatabaseDSN    string

	// NATS settings, an empty URL disables event publishing
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret string

	// LLM settings
	ChatProvider    string
	ChatModel       string
	ChatMaxTokens   int
	SimpleChatModel string
	HFAPIKey        string
	HFBaseURL       string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables. When CONFIG_FILE
// names a YAML file, its keys (the same names as the environment
// variables) provide values that the environment still overrides.
func Load() (*Config, error) {
	src := source{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}

	return &Config{
		// Server
		ServerPort:         src.getEnv("PORT", "8080"),
		ServerReadTimeout:  src.getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: src.getDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
		CORSAllowedOrigins: src.getList("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"}),

		// Database
		DatabaseDriver: src.getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:    src.getEnv("DATABASE_DSN", "chatbot.db"),

		// NATS
		NATSURL:      src.getEnv("NATS_URL", ""),
		NATSCAFile:   src.getEnv("NATS_CA_FILE", ""),
		NATSCertFile: src.getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  src.getEnv("NATS_KEY_FILE", ""),
		NATSToken:    src.getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret: src.getEnv("JWT_SECRET", "development-secret-change-in-production"),

		// LLM
		ChatProvider:    src.getEnv("CHAT_PROVIDER", "huggingface"),
		ChatModel:       src.getEnv("CHAT_MODEL", "deepseek-ai/DeepSeek-V3-0324"),
		ChatMaxTokens:   src.getInt("CHAT_MAX_TOKENS", 512),
		SimpleChatModel: src.getEnv("SIMPLE_CHAT_MODEL", "gpt-4o-mini"),
		HFAPIKey:        src.getEnv("HF_API_KEY", ""),
		HFBaseURL:       src.getEnv("HF_BASE_URL", "https://router.huggingface.co/v1"),
		OpenAIAPIKey:    src.getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   src.getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey: src.getEnv("ANTHROPIC_API_KEY", ""),

		// Logging
		LogLevel: src.getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: src.getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  src.getBool("TRACING_ENABLED", false),
	}, nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s.file[key]
}

func (s source) getEnv(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value := s.lookup(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := s.lookup(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (s source) getList(key string, defaultValue []string) []string {
	value := s.lookup(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
