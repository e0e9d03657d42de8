package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"docqa/internal/ai"
)

const defaultBatchSize = 10

// PGStore keeps chunk embeddings in a pgvector table and embeds text on the
// way in and out.
type PGStore struct {
	pool      *pgxpool.Pool
	embedder  ai.Embedder
	table     string
	dimension int
	batchSize int
}

type Options struct {
	Table     string
	Dimension int
	BatchSize int
}

func NewPGStore(pool *pgxpool.Pool, embedder ai.Embedder, opts Options) *PGStore {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PGStore{
		pool:      pool,
		embedder:  embedder,
		table:     pgx.Identifier{opts.Table}.Sanitize(),
		dimension: opts.Dimension,
		batchSize: batchSize,
	}
}

// Init creates the extension, table and index. Safe to call on every start.
func (s *PGStore) Init(ctx context.Context) error {
	indexName := pgx.Identifier{strings.Trim(s.table, `"`) + "_document_id_idx"}.Sanitize()
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id uuid PRIMARY KEY,
			content text NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d) NOT NULL
		)`, s.table, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s ((metadata->>'document_id'))`, indexName, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("init vector table failed: %w", err)
		}
	}
	return nil
}

// isAlreadyExists matches duplicate_table and duplicate_object, which
// concurrent CREATE ... IF NOT EXISTS can still raise.
func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "42P07" || pgErr.Code == "42710"
}

// Add embeds and stores chunks in one transaction. Blank chunks are skipped.
func (s *PGStore) Add(ctx context.Context, chunks []Chunk) error {
	kept := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Content) != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	vectors := make([][]float32, 0, len(kept))
	for i := 0; i < len(kept); i += s.batchSize {
		end := i + s.batchSize
		if end > len(kept) {
			end = len(kept)
		}
		texts := make([]string, 0, end-i)
		for _, c := range kept[i:end] {
			texts = append(texts, c.Content)
		}
		batched, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks failed: %w", err)
		}
		vectors = append(vectors, batched...)
	}
	if len(vectors) != len(kept) {
		return fmt.Errorf("embedding count mismatch: %d chunks, %d vectors", len(kept), len(vectors))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin vector insert failed: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insert := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3, $4)`, s.table)
	batch := &pgx.Batch{}
	for i, c := range kept {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		metadata := c.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		batch.Queue(insert, id, c.Content, metadata, pgvector.NewVector(vectors[i]))
	}

	br := tx.SendBatch(ctx, batch)
	for i := range kept {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert chunk %d failed: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close vector batch failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit vector insert failed: %w", err)
	}
	return nil
}

// Search returns up to k chunks ordered by cosine similarity to query.
func (s *PGStore) Search(ctx context.Context, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		k = 4
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id::text, content, metadata, 1 - (embedding <=> $1) AS score
		 FROM %s
		 ORDER BY embedding <=> $1
		 LIMIT $2`, s.table),
		pgvector.NewVector(vec), k,
	)
	if err != nil {
		return nil, fmt.Errorf("search chunks failed: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Metadata, &c.Score); err != nil {
			return nil, fmt.Errorf("scan chunk failed: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteByDocument removes every chunk whose metadata points at documentID.
func (s *PGStore) DeleteByDocument(ctx context.Context, documentID uint) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE metadata->>'document_id' = $1`, s.table),
		strconv.FormatUint(uint64(documentID), 10),
	)
	if err != nil {
		return 0, fmt.Errorf("delete document chunks failed: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
