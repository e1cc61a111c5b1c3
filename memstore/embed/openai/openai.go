// Package openai embeds text through the OpenAI embeddings API. A custom
// base URL covers OpenAI-compatible servers such as Ollama and OpenRouter.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config configures the embedder.
type Config struct {
	// APIKey authenticates requests. Optional for local compatible servers.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. an Ollama /v1 endpoint.
	BaseURL string

	// Model defaults to text-embedding-3-small.
	Model string

	// Dimensions defaults per model (1536 for small/ada, 3072 for large).
	Dimensions int

	// RequestDimensions asks the API to truncate vectors to Dimensions.
	// Only the text-embedding-3 family supports it; compatible servers
	// generally do not.
	RequestDimensions bool
}

// Embedder calls the embeddings endpoint once per text.
type Embedder struct {
	client   openai.Client
	model    string
	dims     int
	sendDims bool
}

// New creates an embedder from cfg.
func New(cfg Config) *Embedder {
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = defaultDimensions(cfg.Model)
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Embedder{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		dims:     cfg.Dimensions,
		sendDims: cfg.RequestDimensions,
	}
}

func defaultDimensions(model string) int {
	if model == "text-embedding-3-large" {
		return 3072
	}
	return 1536
}

// Embed converts text to an embedding vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.sendDims {
		params.Dimensions = openai.Int(int64(e.dims))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings request: empty response")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the configured vector size.
func (e *Embedder) Dimensions() int { return e.dims }

// Close is a no-op; the client holds no persistent connections.
func (e *Embedder) Close() error { return nil }
