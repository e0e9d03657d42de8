package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docqa/internal/ai"
)

// EmbeddingCache memoizes single-text embeddings in Redis. Redis failures
// never fail the caller; the inner embedder is used instead.
type EmbeddingCache struct {
	client *redisv9.Client
	inner  ai.Embedder
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

func NewEmbeddingCache(client *redisv9.Client, inner ai.Embedder, model string, ttl time.Duration, logger *slog.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingCache{
		client: client,
		inner:  inner,
		model:  model,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	vec, found, err := c.get(ctx, key)
	if err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
	} else if found {
		return vec, nil
	}

	vec, err = c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return vec, nil
}

// EmbedBatch is only used on ingestion, where texts rarely repeat.
func (c *EmbeddingCache) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *EmbeddingCache) get(ctx context.Context, key string) ([]float32, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get embedding failed: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached embedding failed: %w", err)
	}
	return vec, true, nil
}

func (c *EmbeddingCache) set(ctx context.Context, key string, vec []float32) error {
	payload, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set embedding failed: %w", err)
	}
	return nil
}

func (c *EmbeddingCache) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return "docqa:embedding:" + hex.EncodeToString(sum[:])
}
