package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docqa/internal/model"
)

// ErrDuplicateFilename is returned when the unique index on filename rejects an insert.
var ErrDuplicateFilename = errors.New("document filename already exists")

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// CreateWith inserts doc and runs onCreated inside the same transaction. The
// row is committed only if onCreated returns nil; doc.ID is already assigned
// when onCreated runs.
func (r *DocumentRepository) CreateWith(ctx context.Context, doc *model.Document, onCreated func(*model.Document) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateFilename
			}
			return fmt.Errorf("create document failed: %w", err)
		}
		if onCreated == nil {
			return nil
		}
		return onCreated(doc)
	})
}

func (r *DocumentRepository) GetByFilename(ctx context.Context, filename string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query document by filename failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query document by id failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) DeleteByID(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}
