package bootstrap

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"docqa/internal/app"
	"docqa/internal/config"
	rabbitmqClient "docqa/internal/platform/rabbitmq"
	"docqa/internal/worker"
)

// connectPurgeQueue dials the broker and starts the purge worker. Any failure
// is logged and reported as all-nil, which makes deletes purge inline.
func connectPurgeQueue(ctx context.Context, cfg config.RabbitMQConfig, index worker.ChunkDeleter, log *slog.Logger) (*amqp.Connection, *worker.IndexPurgeWorker, app.IndexPurger) {
	conn, err := rabbitmqClient.New(ctx, cfg.URL)
	if err != nil {
		log.Warn("rabbitmq unavailable, purging inline", "error", err)
		return nil, nil, nil
	}

	purgeWorker := worker.NewIndexPurgeWorker(conn, index, cfg.IndexPurgeQueue, log)
	if err := purgeWorker.Start(ctx); err != nil {
		log.Warn("index purge worker failed to start, purging inline", "error", err)
		_ = conn.Close()
		return nil, nil, nil
	}

	return conn, purgeWorker, rabbitmqClient.NewPurgePublisher(conn, cfg.IndexPurgeQueue)
}
