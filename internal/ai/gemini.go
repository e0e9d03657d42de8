package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient serves chat and embeddings from Google Generative AI.
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

func NewGeminiClient(ctx context.Context, apiKey, model, embeddingModel string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return &GeminiClient{
		client:         client,
		model:          model,
		embeddingModel: embeddingModel,
	}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Complete maps system messages to the system instruction and sends the rest
// as one user turn.
func (g *GeminiClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	model := g.client.GenerativeModel(g.model)

	var system []genai.Part
	var parts []genai.Part
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini request has no user content")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}
	return candidateText(resp), nil
}

func candidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}
	resp, err := g.client.EmbeddingModel(g.embeddingModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return resp.Embedding.Values, nil
}

func (g *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	em := g.client.EmbeddingModel(g.embeddingModel)
	batch := em.NewBatch()
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini batch embedding failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(texts), len(resp.Embeddings))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("empty embedding at %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}
