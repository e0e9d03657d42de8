package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("llm provider unavailable")

// Guard puts a circuit breaker and an optional request-rate limit in front of
// a provider. Failures are never retried.
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuard creates a guard. requestsPerMinute <= 0 disables rate limiting.
func NewGuard(name string, requestsPerMinute int, openTimeout time.Duration) *Guard {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a provider failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		burst := requestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
	return &Guard{breaker: breaker, limiter: limiter}
}

func (g *Guard) do(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	out, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, err
}

func (g *Guard) Chat(inner ChatCompleter) ChatCompleter {
	return &guardedChat{guard: g, inner: inner}
}

func (g *Guard) Embedder(inner Embedder) Embedder {
	return &guardedEmbedder{guard: g, inner: inner}
}

type guardedChat struct {
	guard *Guard
	inner ChatCompleter
}

func (c *guardedChat) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	out, err := c.guard.do(ctx, func() (interface{}, error) {
		return c.inner.Complete(ctx, messages)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

type guardedEmbedder struct {
	guard *Guard
	inner Embedder
}

func (e *guardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.guard.do(ctx, func() (interface{}, error) {
		return e.inner.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return out.([]float32), nil
}

func (e *guardedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := e.guard.do(ctx, func() (interface{}, error) {
		return e.inner.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return out.([][]float32), nil
}
