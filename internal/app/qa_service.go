package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/ai"
	"docqa/internal/vectorstore"
)

const (
	NoAnswer     = "No relevant answer found."
	defaultTopK  = 4
	systemPrompt = "Use the following pieces of context to answer the question at the end. " +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer."
)

type ChunkSearcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.Chunk, error)
}

type QAService struct {
	index  ChunkSearcher
	chat   ai.ChatCompleter
	topK   int
	logger *slog.Logger
}

func NewQAService(index ChunkSearcher, chat ai.ChatCompleter, topK int, logger *slog.Logger) *QAService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &QAService{
		index:  index,
		chat:   chat,
		topK:   topK,
		logger: logger.With("component", "qa_service"),
	}
}

type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Ask retrieves the closest chunks once and uses them both as the prompt
// context and as the reported sources.
func (s *QAService) Ask(ctx context.Context, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	chunks, err := s.index.Search(ctx, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrDependency, err)
	}

	sources := make([]string, 0, len(chunks))
	scores := make([]float64, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, c.Filename())
		scores = append(scores, c.Score)
	}
	if len(chunks) == 0 {
		return &AskResult{Answer: NoAnswer, Sources: sources}, nil
	}

	answer, err := s.chat.Complete(ctx, buildMessages(question, chunks))
	if err != nil {
		return nil, fmt.Errorf("%w: complete: %w", ErrDependency, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = NoAnswer
	}

	s.logger.Debug("question answered", "chunks", len(chunks), "sources", sources, "scores", scores)
	return &AskResult{Answer: answer, Sources: sources}, nil
}

func buildMessages(question string, chunks []vectorstore.Chunk) []ai.ChatMessage {
	var b strings.Builder
	b.WriteString(systemPrompt)
	for _, c := range chunks {
		b.WriteString("\n\n")
		b.WriteString(c.Content)
	}
	return []ai.ChatMessage{
		{Role: "system", Content: b.String()},
		{Role: "user", Content: question},
	}
}
