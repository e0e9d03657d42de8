package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docqa/internal/model"
	"docqa/internal/platform/rabbitmq"
)

// ChunkDeleter removes a document's chunks from the vector index.
type ChunkDeleter interface {
	DeleteByDocument(ctx context.Context, documentID uint) (int64, error)
}

// IndexPurgeWorker consumes purge requests queued by document deletion and
// removes the matching chunks.
type IndexPurgeWorker struct {
	conn      *amqp.Connection
	index     ChunkDeleter
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIndexPurgeWorker(conn *amqp.Connection, index ChunkDeleter, queueName string, logger *slog.Logger) *IndexPurgeWorker {
	return &IndexPurgeWorker{
		conn:      conn,
		index:     index,
		queueName: queueName,
		logger:    logger.With("component", "index_purge_worker", "queue", queueName),
	}
}

func (w *IndexPurgeWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Error("purge failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("worker started")
	return nil
}

func (w *IndexPurgeWorker) handle(ctx context.Context, body []byte) error {
	var purge model.IndexPurge
	if err := json.Unmarshal(body, &purge); err != nil {
		return fmt.Errorf("decode purge request failed: %w", err)
	}
	if purge.DocumentID == 0 {
		return fmt.Errorf("purge request has no document id")
	}

	removed, err := w.index.DeleteByDocument(ctx, purge.DocumentID)
	if err != nil {
		return err
	}
	w.logger.Info("document chunks purged",
		"document_id", purge.DocumentID,
		"filename", purge.Filename,
		"chunks", removed,
	)
	return nil
}

func (w *IndexPurgeWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
