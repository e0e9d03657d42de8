package app

import (
	"context"

	"docqa/internal/model"
)

// IndexPurger requests removal of a deleted document's chunks.
// rabbitmq.PurgePublisher queues the request; InlinePurger runs it directly.
type IndexPurger interface {
	PublishPurge(ctx context.Context, purge model.IndexPurge) error
}

type ChunkDeleter interface {
	DeleteByDocument(ctx context.Context, documentID uint) (int64, error)
}

// InlinePurger is used when no broker is configured.
type InlinePurger struct {
	index ChunkDeleter
}

func NewInlinePurger(index ChunkDeleter) *InlinePurger {
	return &InlinePurger{index: index}
}

func (p *InlinePurger) PublishPurge(ctx context.Context, purge model.IndexPurge) error {
	_, err := p.index.DeleteByDocument(ctx, purge.DocumentID)
	return err
}
