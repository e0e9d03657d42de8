package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docqa/internal/ai"
	"docqa/internal/app"
	"docqa/internal/cache"
	"docqa/internal/config"
	"docqa/internal/logger"
	"docqa/internal/model"
	"docqa/internal/pkg/pdfextract"
	"docqa/internal/pkg/textsplit"
	mysqlClient "docqa/internal/platform/mysql"
	postgresClient "docqa/internal/platform/postgres"
	redisClient "docqa/internal/platform/redis"
	"docqa/internal/repository"
	"docqa/internal/vectorstore"
	"docqa/internal/worker"
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	DB          *gorm.DB
	VectorPool  *pgxpool.Pool
	VectorStore *vectorstore.PGStore
	Provider    *ai.Provider
	Redis       *redis.Client
	MQConn      *amqp.Connection
	PurgeWorker *worker.IndexPurgeWorker

	Documents *app.DocumentService
	QA        *app.QAService

	StartedAt time.Time
}

// New loads configuration and opens every handle the server needs. Redis and
// RabbitMQ are optional; everything else failing aborts startup.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Logger:    logger.New(cfg),
		StartedAt: time.Now(),
	}
	if err := a.open(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) open(ctx context.Context) error {
	cfg := a.Config
	log := a.Logger

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.DB = db
	if err := db.AutoMigrate(&model.Document{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	a.VectorPool, err = postgresClient.NewPool(ctx, cfg.Vector.URL)
	if err != nil {
		return err
	}

	a.Provider, err = ai.NewProvider(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm provider failed: %w", err)
	}

	embedder := a.Provider.Embedder
	if cfg.Redis.Addr != "" {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, embedding cache disabled", "error", err)
		} else {
			ttl := time.Duration(cfg.Redis.EmbeddingTTLSeconds) * time.Second
			embedder = cache.NewEmbeddingCache(a.Redis, embedder, cfg.LLM.EmbeddingModel, ttl, log)
		}
	}

	a.VectorStore = vectorstore.NewPGStore(a.VectorPool, embedder, vectorstore.Options{
		Table:     cfg.Vector.Table,
		Dimension: cfg.Vector.Dimension,
		BatchSize: cfg.Vector.BatchSize,
	})
	if err := a.VectorStore.Init(ctx); err != nil {
		return err
	}

	var purger app.IndexPurger
	if cfg.RabbitMQ.URL != "" {
		a.MQConn, a.PurgeWorker, purger = connectPurgeQueue(ctx, cfg.RabbitMQ, a.VectorStore, log)
	}

	repo := repository.NewDocumentRepository(a.DB)
	splitter := textsplit.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	a.Documents = app.NewDocumentService(repo, pdfextract.Extractor{}, splitter, a.VectorStore, purger, cfg.Upload.Dir, log)
	a.QA = app.NewQAService(a.VectorStore, a.Provider.Chat, cfg.RAG.TopK, log)

	log.Info("application initialised",
		"database_driver", cfg.Database.Driver,
		"llm_provider", cfg.LLM.Provider,
		"vector_table", cfg.Vector.Table,
		"embedding_cache", a.Redis != nil,
		"purge_queue", a.MQConn != nil,
	)
	return nil
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		return mysqlClient.New(ctx, cfg.URL)
	case config.DriverPostgres, "":
		return postgresClient.New(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func (a *App) Close() error {
	var errs []error
	if a.PurgeWorker != nil {
		a.PurgeWorker.Close()
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.Provider.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close llm provider: %w", err))
	}
	if a.VectorPool != nil {
		a.VectorPool.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
