package app

import (
	"context"
	"errors"
	"sync"

	"docqa/internal/ai"
	"docqa/internal/model"
	"docqa/internal/vectorstore"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractFile(string) (string, error) {
	return f.text, f.err
}

type fakeIndex struct {
	mu      sync.Mutex
	added   []vectorstore.Chunk
	deleted []uint
	results []vectorstore.Chunk
	addErr  error
	findErr error
}

func (f *fakeIndex) Add(_ context.Context, chunks []vectorstore.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, chunks...)
	return nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, id uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return 1, nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]vectorstore.Chunk, error) {
	return f.results, f.findErr
}

type fakePurger struct {
	purges []model.IndexPurge
	err    error
}

func (f *fakePurger) PublishPurge(_ context.Context, purge model.IndexPurge) error {
	f.purges = append(f.purges, purge)
	return f.err
}

type fakeChat struct {
	answer   string
	err      error
	messages []ai.ChatMessage
}

func (f *fakeChat) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	f.messages = messages
	return f.answer, f.err
}

var errBoom = errors.New("boom")
