// Package config loads server configuration from the environment, with a
// best-effort .env file on top. Every knob has a default that works for
// local development with the mock embedder.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Transports for the MCP surface.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Config holds everything the binary needs to assemble the server.
type Config struct {
	// MCP surface
	Transport string
	Host      string
	Port      int

	// Memory semantics
	DefaultUserID string

	// LLM used for fact extraction
	LLMProvider string
	LLMBaseURL  string
	LLMAPIKey   string
	LLMModel    string

	// Embedding backend
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingDims     int
	EmbeddingCache    bool

	// Local ONNX embedder
	ONNXModelPath     string
	ONNXTokenizerPath string
	ONNXLibraryPath   string

	// Pool tuning
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	MaxLifetime     time.Duration
	CreateTimeout   time.Duration
	MaxPoolSize     int
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Transport:         getenv("TRANSPORT", TransportSSE),
		Host:              getenv("HOST", "0.0.0.0"),
		Port:              envInt("PORT", 8050),
		DefaultUserID:     getenv("DEFAULT_USER_ID", "user"),
		LLMProvider:       getenv("LLM_PROVIDER", ""),
		LLMBaseURL:        getenv("LLM_BASE_URL", ""),
		LLMAPIKey:         getenv("LLM_API_KEY", ""),
		LLMModel:          getenv("LLM_CHOICE", ""),
		EmbeddingProvider: getenv("EMBEDDING_PROVIDER", "openai"),
		EmbeddingModel:    getenv("EMBEDDING_MODEL_CHOICE", ""),
		EmbeddingDims:     envInt("EMBEDDING_DIMS", 0),
		EmbeddingCache:    envBool("EMBEDDING_CACHE", true),
		ONNXModelPath:     getenv("ONNX_MODEL_PATH", ""),
		ONNXTokenizerPath: getenv("ONNX_TOKENIZER_PATH", ""),
		ONNXLibraryPath:   getenv("ONNX_LIBRARY_PATH", ""),
		CleanupInterval:   envDuration("POOL_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTimeout:       envDuration("POOL_IDLE_TIMEOUT", 10*time.Minute),
		MaxLifetime:       envDuration("POOL_MAX_LIFETIME", time.Hour),
		CreateTimeout:     envDuration("POOL_CREATE_TIMEOUT", 30*time.Second),
		MaxPoolSize:       envInt("POOL_MAX_SIZE", 10),
	}

	if cfg.Transport != TransportStdio && cfg.Transport != TransportSSE {
		return nil, fmt.Errorf("invalid TRANSPORT %q (want %q or %q)", cfg.Transport, TransportStdio, TransportSSE)
	}

	switch cfg.EmbeddingProvider {
	case "openai", "ollama", "onnx", "mock":
	default:
		return nil, fmt.Errorf("invalid EMBEDDING_PROVIDER %q", cfg.EmbeddingProvider)
	}

	return cfg, nil
}

// Addr returns the host:port the SSE transport binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envDuration accepts Go duration strings ("45s", "5m") and, for
// compatibility with older deployments, bare integers meaning seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
