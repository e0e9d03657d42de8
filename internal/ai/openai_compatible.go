package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAICompatibleClient talks to any server that implements the OpenAI
// /chat/completions and /embeddings endpoints.
type OpenAICompatibleClient struct {
	httpClient *http.Client
	chat       ChatConfig
	embedding  EmbeddingConfig
}

func NewOpenAICompatibleClient(chat ChatConfig, embedding EmbeddingConfig) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
		chat:       chat,
		embedding:  embedding,
	}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	reqBody := map[string]interface{}{
		"model":    c.chat.Model,
		"messages": messages,
		"stream":   false,
	}

	raw, err := c.postJSON(ctx, c.chat.BaseURL, c.chat.APIKey, "/chat/completions", reqBody)
	if err != nil {
		return "", fmt.Errorf("llm %w", err)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	// Legacy completion servers put the answer in "text".
	choice := parsed.Choices[0]
	if strings.TrimSpace(choice.Message.Content) != "" {
		return choice.Message.Content, nil
	}
	return choice.Text, nil
}

func (c *OpenAICompatibleClient) postJSON(ctx context.Context, baseURL, apiKey, path string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("response status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// vectors returns the embeddings in input order.
func (r embeddingResponse) vectors() [][]float32 {
	sort.SliceStable(r.Data, func(i, j int) bool { return r.Data[i].Index < r.Data[j].Index })
	out := make([][]float32, len(r.Data))
	for i := range r.Data {
		out[i] = r.Data[i].Embedding
	}
	return out
}
