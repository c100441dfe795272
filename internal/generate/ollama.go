package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/searchive/searchive/internal/config"
)

// OllamaGenerator generates replies through a local Ollama server.
type OllamaGenerator struct {
	llm         *ollama.LLM
	maxTokens   int
	temperature float64
}

// NewOllamaGenerator creates a generator against the configured Ollama server.
// The server is not contacted until the first Generate call.
func NewOllamaGenerator(cfg *config.GenerationConfig) (*OllamaGenerator, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaGenerator{
		llm:         llm,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Generate builds the prompt for req and returns the model's reply. Backend
// failures wrap ErrUnavailable.
func (g *OllamaGenerator) Generate(ctx context.Context, req *Request) (string, error) {
	prompt := BuildPrompt(req)
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	reply := strings.TrimSpace(out)
	if reply == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return reply, nil
}
