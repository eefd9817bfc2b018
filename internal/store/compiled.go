package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nodecms/app/internal/content"
)

const upsertBatchSize = 200

// CompiledPageRepository defines persistence operations for the compiled-page
// index.
type CompiledPageRepository interface {
	List(ctx context.Context) ([]content.CompiledPage, error)
	AddAll(ctx context.Context, entries []content.CompiledPage) error
	DeletePaths(ctx context.Context, paths []string) ([]content.CompiledPage, error)
	GetByPath(ctx context.Context, path string) (*content.CompiledPage, error)
}

// GormCompiledPageRepository persists the compiled-page index using Gorm.
type GormCompiledPageRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ CompiledPageRepository = (*GormCompiledPageRepository)(nil)

// NewCompiledPageRepository constructs a Gorm-backed compiled-page index.
func NewCompiledPageRepository(db *gorm.DB, logger *logrus.Logger) (*GormCompiledPageRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormCompiledPageRepository{db: db, logger: logger}, nil
}

// List returns every index row ordered by path.
func (r *GormCompiledPageRepository) List(ctx context.Context) ([]content.CompiledPage, error) {
	entries, err := listCompiled(r.db.WithContext(ctx))
	if err != nil {
		logError(r.logger, nil, err, "listing compiled pages")
		return nil, eris.Wrap(err, "listing compiled pages")
	}
	return entries, nil
}

// AddAll upserts the entries, keyed by path.
func (r *GormCompiledPageRepository) AddAll(ctx context.Context, entries []content.CompiledPage) error {
	if len(entries) == 0 {
		return nil
	}

	records := make([]CompiledPageRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, CompiledPageRecord{
			PageID:   entry.PageID,
			PageType: entry.PageType,
			Lang:     entry.Lang,
			Path:     entry.Path,
			Hash:     entry.Hash,
		})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"page_id", "page_type", "lang", "hash", "updated_at"}),
		}).
		CreateInBatches(&records, upsertBatchSize).Error
	if err != nil {
		logError(r.logger, logrus.Fields{"entries": len(entries)}, err, "upserting compiled pages")
		return eris.Wrap(err, "upserting compiled pages")
	}

	return nil
}

// DeletePaths removes the rows for the given paths and returns the rows that
// remain afterwards.
func (r *GormCompiledPageRepository) DeletePaths(ctx context.Context, paths []string) ([]content.CompiledPage, error) {
	var remaining []content.CompiledPage

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(paths) > 0 {
			if err := tx.Where("path IN ?", paths).Delete(&CompiledPageRecord{}).Error; err != nil {
				return eris.Wrap(err, "deleting compiled pages")
			}
		}

		entries, err := listCompiled(tx)
		if err != nil {
			return err
		}
		remaining = entries
		return nil
	})
	if err != nil {
		logError(r.logger, logrus.Fields{"paths": len(paths)}, err, "deleting compiled pages by path")
		return nil, eris.Wrap(err, "deleting compiled pages by path")
	}

	return remaining, nil
}

// GetByPath returns the index row for a logical path or nil when not found.
func (r *GormCompiledPageRepository) GetByPath(ctx context.Context, path string) (*content.CompiledPage, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, eris.New("path is required")
	}

	var record CompiledPageRecord
	err := r.db.WithContext(ctx).First(&record, "path = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logError(r.logger, logrus.Fields{"path": trimmed}, err, "fetching compiled page by path")
		return nil, eris.Wrapf(err, "fetching compiled page by path: %s", trimmed)
	}

	entry := record.entry()
	return &entry, nil
}

func listCompiled(db *gorm.DB) ([]content.CompiledPage, error) {
	var records []CompiledPageRecord
	if err := db.Order("path ASC").Find(&records).Error; err != nil {
		return nil, eris.Wrap(err, "querying compiled pages")
	}

	entries := make([]content.CompiledPage, 0, len(records))
	for _, record := range records {
		entries = append(entries, record.entry())
	}
	return entries, nil
}
