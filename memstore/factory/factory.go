// Package factory turns configuration into a pool.Factory that assembles
// memory clients: vector store, embedder (optionally cached), and optional
// LLM fact extraction, selected by provider the same way the server's env
// surface describes them.
package factory

import (
	"context"
	"fmt"
	"log"

	"memgate/config"
	"memgate/memstore"
	"memgate/memstore/embed/cache"
	"memgate/memstore/embed/mock"
	openaiembed "memgate/memstore/embed/openai"
	"memgate/memstore/vecstore"
	"memgate/pool"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// New validates cfg and returns a factory the pool can call for every
// client it constructs. Validation happens here so misconfiguration fails at
// startup, not on the first tool call.
func New(cfg *config.Config) (pool.Factory, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return pool.FactoryFunc(func(ctx context.Context) (pool.Client, error) {
		embedder, err := newEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.EmbeddingCache {
			embedder, err = cache.New(embedder, 0)
			if err != nil {
				return nil, err
			}
		}

		var opts []memstore.ClientOption
		if extractor := newExtractor(cfg); extractor != nil {
			opts = append(opts, memstore.WithExtractor(extractor))
		}

		return memstore.NewLocalClient(vecstore.New(), embedder, opts...), nil
	}), nil
}

func validate(cfg *config.Config) error {
	switch cfg.EmbeddingProvider {
	case "openai":
		if cfg.LLMAPIKey == "" {
			return fmt.Errorf("openai embeddings require LLM_API_KEY")
		}
	case "onnx":
		if cfg.ONNXModelPath == "" || cfg.ONNXTokenizerPath == "" {
			return fmt.Errorf("onnx embeddings require ONNX_MODEL_PATH and ONNX_TOKENIZER_PATH")
		}
	}
	return nil
}

func newEmbedder(cfg *config.Config) (memstore.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "openai":
		return openaiembed.New(openaiembed.Config{
			APIKey:            cfg.LLMAPIKey,
			BaseURL:           cfg.LLMBaseURL,
			Model:             cfg.EmbeddingModel,
			Dimensions:        cfg.EmbeddingDims,
			RequestDimensions: cfg.EmbeddingDims > 0,
		}), nil

	case "ollama":
		baseURL := cfg.LLMBaseURL
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		// Ollama speaks the OpenAI embeddings API; the key is ignored but
		// the client wants one.
		return openaiembed.New(openaiembed.Config{
			APIKey:     "ollama",
			BaseURL:    baseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDims,
		}), nil

	case "onnx":
		return newONNXEmbedder(cfg)

	case "mock":
		if cfg.EmbeddingDims > 0 {
			return mock.NewWithDimensions(cfg.EmbeddingDims), nil
		}
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// newExtractor wires LLM fact extraction when the configured provider can
// serve it. Other providers store raw text; memories still work, they are
// just less distilled.
func newExtractor(cfg *config.Config) memstore.Extractor {
	if cfg.LLMProvider == "" {
		return nil
	}
	if cfg.LLMProvider != "anthropic" {
		log.Printf("[FACTORY] fact extraction unavailable for LLM provider %q, storing raw text", cfg.LLMProvider)
		return nil
	}
	if cfg.LLMAPIKey == "" {
		log.Printf("[FACTORY] LLM_API_KEY unset, storing raw text")
		return nil
	}
	return memstore.NewClaudeExtractor(memstore.ExtractorConfig{
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		BaseURL: cfg.LLMBaseURL,
	})
}
