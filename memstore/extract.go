package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// extractionInstructions steer the model toward facts worth keeping:
// key details, surrounding context, connections to other topics, why the
// information might matter later, and its source when stated.
const extractionInstructions = `You distill messages into memories for long-term storage.

Extract the following information:
- Key Information: the most important details.
- Context: the surrounding context that makes the memory relevant.
- Connections: relationships to other topics or memories.
- Importance: why this information might be valuable in the future.
- Source: where this information came from, when applicable.

Respond with ONLY a JSON array of short, self-contained fact strings.
Return an empty array if nothing is worth remembering.`

// ClaudeExtractor distills text into facts with the Anthropic API.
type ClaudeExtractor struct {
	client anthropic.Client
	model  string
}

// ExtractorConfig configures a ClaudeExtractor.
type ExtractorConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClaudeExtractor creates an extractor. Model defaults to a small, fast
// one; extraction quality matters less than latency here.
func NewClaudeExtractor(cfg ExtractorConfig) *ClaudeExtractor {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &ClaudeExtractor{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Extract returns the facts found in text. An empty slice means the model
// judged nothing worth storing; callers then fall back to the raw text.
func (x *ClaudeExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	resp, err := x.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(x.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: extractionInstructions},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return parseFacts(out.String())
}

// parseFacts reads the model's response. The happy path is a JSON array of
// strings; models occasionally wrap it in a code fence or fall back to a
// bulleted list, so both are tolerated.
func parseFacts(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if fenced := stripCodeFence(raw); fenced != "" {
		raw = fenced
	}

	var facts []string
	if err := json.Unmarshal([]byte(raw), &facts); err == nil {
		return compactFacts(facts), nil
	}

	// Bulleted or line-separated fallback.
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("unparseable extraction response")
	}
	return compactFacts(lines), nil
}

func stripCodeFence(raw string) string {
	if !strings.HasPrefix(raw, "```") {
		return ""
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func compactFacts(facts []string) []string {
	out := facts[:0]
	for _, f := range facts {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
