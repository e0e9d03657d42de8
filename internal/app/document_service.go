package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docqa/internal/model"
	"docqa/internal/pkg/textsplit"
	"docqa/internal/repository"
	"docqa/internal/vectorstore"
)

type TextExtractor interface {
	ExtractFile(path string) (string, error)
}

type ChunkIndex interface {
	Add(ctx context.Context, chunks []vectorstore.Chunk) error
	ChunkDeleter
}

type DocumentService struct {
	repo      *repository.DocumentRepository
	extractor TextExtractor
	splitter  textsplit.Splitter
	index     ChunkIndex
	purger    IndexPurger
	uploadDir string
	logger    *slog.Logger
}

func NewDocumentService(
	repo *repository.DocumentRepository,
	extractor TextExtractor,
	splitter textsplit.Splitter,
	index ChunkIndex,
	purger IndexPurger,
	uploadDir string,
	logger *slog.Logger,
) *DocumentService {
	if purger == nil {
		purger = NewInlinePurger(index)
	}
	return &DocumentService{
		repo:      repo,
		extractor: extractor,
		splitter:  splitter,
		index:     index,
		purger:    purger,
		uploadDir: uploadDir,
		logger:    logger.With("component", "document_service"),
	}
}

// DocumentSummary is what callers see of a stored document.
type DocumentSummary struct {
	ID       uint   `json:"id"`
	Filename string `json:"filename"`
}

// Upload stores a PDF, indexes its text and records it. The record is only
// committed once the file is in place and its chunks are indexed.
func (s *DocumentService) Upload(ctx context.Context, filename string, content []byte) (*DocumentSummary, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByFilename(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDependency, err)
	}
	if existing != nil {
		return nil, ErrDocumentExists
	}
	if len(content) == 0 {
		return nil, ErrEmptyUpload
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create upload dir: %w", ErrDependency, err)
	}
	tmpPath := filepath.Join(s.uploadDir, ".upload-"+uuid.NewString()+".tmp")
	finalPath := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write upload: %w", ErrDependency, err)
	}

	moved := false
	removeFile := func() {
		path := tmpPath
		if moved {
			path = finalPath
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("remove upload failed", "path", path, "error", err)
		}
	}

	text, err := s.extractor.ExtractFile(tmpPath)
	if err != nil {
		removeFile()
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	pieces := s.splitter.Split(text)

	indexed := false
	doc := &model.Document{Filename: name, Filepath: finalPath}
	err = s.repo.CreateWith(ctx, doc, func(created *model.Document) error {
		if len(pieces) > 0 {
			chunks := make([]vectorstore.Chunk, 0, len(pieces))
			for i, piece := range pieces {
				chunks = append(chunks, vectorstore.Chunk{
					Content: piece,
					Metadata: map[string]any{
						vectorstore.MetaFilename:   name,
						vectorstore.MetaDocumentID: created.ID,
						vectorstore.MetaChunkIndex: i,
					},
				})
			}
			if err := s.index.Add(ctx, chunks); err != nil {
				return fmt.Errorf("index chunks: %w", err)
			}
			indexed = true
		}
		if err := os.Rename(tmpPath, finalPath); err != nil {
			return fmt.Errorf("move upload: %w", err)
		}
		moved = true
		return nil
	})
	if err != nil {
		removeFile()
		if errors.Is(err, repository.ErrDuplicateFilename) {
			return nil, ErrDocumentExists
		}
		if indexed {
			s.purgeOrphans(ctx, doc)
		}
		return nil, fmt.Errorf("%w: %w", ErrDependency, err)
	}

	s.logger.Info("document uploaded",
		"document_id", doc.ID,
		"filename", doc.Filename,
		"chunks", len(pieces),
		"bytes", len(content),
	)
	return &DocumentSummary{ID: doc.ID, Filename: doc.Filename}, nil
}

func (s *DocumentService) purgeOrphans(ctx context.Context, doc *model.Document) {
	removed, err := s.index.DeleteByDocument(context.WithoutCancel(ctx), doc.ID)
	if err != nil {
		s.logger.Error("purge orphaned chunks failed", "document_id", doc.ID, "error", err)
		return
	}
	s.logger.Warn("purged chunks of rolled back upload", "document_id", doc.ID, "chunks", removed)
}

func (s *DocumentService) List(ctx context.Context) ([]DocumentSummary, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDependency, err)
	}
	out := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, DocumentSummary{ID: d.ID, Filename: d.Filename})
	}
	return out, nil
}

// Delete removes the stored file and the record, then asks for the
// document's chunks to be purged. A purge failure is logged, not returned.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDependency, err)
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	if err := os.Remove(doc.Filepath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove file: %w", ErrDependency, err)
	}
	if err := s.repo.DeleteByID(ctx, doc.ID); err != nil {
		return fmt.Errorf("%w: %w", ErrDependency, err)
	}

	purge := model.IndexPurge{DocumentID: doc.ID, Filename: doc.Filename}
	if err := s.purger.PublishPurge(context.WithoutCancel(ctx), purge); err != nil {
		s.logger.Error("index purge request failed", "document_id", doc.ID, "error", err)
	}

	s.logger.Info("document deleted", "document_id", doc.ID, "filename", doc.Filename)
	return nil
}

// cleanFilename accepts only a bare base name so uploads cannot escape the
// upload directory.
func cleanFilename(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" || raw == "." || raw == ".." {
		return "", ErrInvalidInput
	}
	if strings.ContainsAny(raw, "/\\\x00") || filepath.Base(raw) != raw {
		return "", ErrInvalidInput
	}
	if len(raw) > 255 {
		return "", ErrInvalidInput
	}
	return raw, nil
}
