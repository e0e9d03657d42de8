package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// EmbeddingConfig holds API settings for text-embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Embed returns the embedding vector for the given text.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	reqBody := map[string]interface{}{
		"model": c.embedding.Model,
		"input": text,
	}
	raw, err := c.postJSON(ctx, c.embedding.BaseURL, c.embedding.APIKey, "/embeddings", reqBody)
	if err != nil {
		return nil, fmt.Errorf("embedding %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	vectors := parsed.vectors()
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per input text, in input order. Blank
// inputs are rejected rather than dropped so the result lines up with texts.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
	}

	reqBody := map[string]interface{}{
		"model": c.embedding.Model,
		"input": texts,
	}
	raw, err := c.postJSON(ctx, c.embedding.BaseURL, c.embedding.APIKey, "/embeddings", reqBody)
	if err != nil {
		return nil, fmt.Errorf("embedding batch %w", err)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding batch json failed: %w", err)
	}
	vectors := parsed.vectors()
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}
