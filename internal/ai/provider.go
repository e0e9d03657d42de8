package ai

import (
	"context"
	"fmt"
	"time"

	"docqa/internal/config"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompleter interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider bundles the chat and embedding sides of one LLM vendor.
type Provider struct {
	Chat     ChatCompleter
	Embedder Embedder
	close    func() error
}

func (p *Provider) Close() error {
	if p == nil || p.close == nil {
		return nil
	}
	return p.close()
}

// NewProvider builds the configured vendor client and wraps both sides in a
// Guard. The returned provider must be closed.
func NewProvider(ctx context.Context, cfg config.LLMConfig) (*Provider, error) {
	guard := NewGuard("llm-"+cfg.Provider, cfg.RequestsPerMinute, 30*time.Second)

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		client := NewOpenAICompatibleClient(
			ChatConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model},
			EmbeddingConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.EmbeddingModel},
		)
		return &Provider{
			Chat:     guard.Chat(client),
			Embedder: guard.Embedder(client),
		}, nil
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		return &Provider{
			Chat:     guard.Chat(client),
			Embedder: guard.Embedder(client),
			close:    client.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
