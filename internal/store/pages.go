package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"nodecms/app/internal/content"
)

var (
	// ErrPageNotFound is returned when a page id does not exist.
	ErrPageNotFound = eris.New("page not found")
	// ErrOrderingNotFound is returned when a swap references an unknown ordering index.
	ErrOrderingNotFound = eris.New("ordering index not found")
)

// PageRepository defines persistence operations for pages.
type PageRepository interface {
	List(ctx context.Context) ([]content.Page, error)
	Count(ctx context.Context) (int64, error)
	Add(ctx context.Context, pageType string, c content.Content) (uint, error)
	Update(ctx context.Context, id uint, c content.Content) error
	Delete(ctx context.Context, id uint) error
	Swap(ctx context.Context, swaps [][2]int) error
}

// GormPageRepository persists pages using a Gorm database connection.
type GormPageRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ PageRepository = (*GormPageRepository)(nil)

// NewPageRepository constructs a Gorm-backed page repository.
func NewPageRepository(db *gorm.DB, logger *logrus.Logger) (*GormPageRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormPageRepository{db: db, logger: logger}, nil
}

// List returns every page ordered by its ordering index.
func (r *GormPageRepository) List(ctx context.Context) ([]content.Page, error) {
	var records []PageRecord
	if err := r.db.WithContext(ctx).Order("ordering ASC").Find(&records).Error; err != nil {
		logError(r.logger, nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	pages := make([]content.Page, 0, len(records))
	for _, record := range records {
		decoded, err := content.DecodeContent(record.Content)
		if err != nil {
			logError(r.logger, logrus.Fields{"page_id": record.ID}, err, "decoding page content")
			return nil, eris.Wrapf(err, "decoding content of page %d", record.ID)
		}
		pages = append(pages, content.Page{
			ID:       record.ID,
			Ordering: record.Ordering,
			PageType: record.PageType,
			Content:  decoded,
		})
	}

	return pages, nil
}

// Count returns the number of stored pages.
func (r *GormPageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&PageRecord{}).Count(&count).Error; err != nil {
		logError(r.logger, nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}
	return count, nil
}

// Add stores a new page at the end of the ordering and returns its id.
func (r *GormPageRepository) Add(ctx context.Context, pageType string, c content.Content) (uint, error) {
	trimmedType := strings.TrimSpace(pageType)
	if trimmedType == "" {
		return 0, eris.New("page type is required")
	}

	encoded, err := content.EncodeContent(c)
	if err != nil {
		return 0, err
	}

	record := PageRecord{PageType: trimmedType, Content: encoded}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxOrdering int
		if err := tx.Model(&PageRecord{}).Select("COALESCE(MAX(ordering), 0)").Scan(&maxOrdering).Error; err != nil {
			return eris.Wrap(err, "reading max ordering")
		}
		record.Ordering = maxOrdering + 1

		if err := tx.Create(&record).Error; err != nil {
			return eris.Wrap(err, "inserting page")
		}
		return nil
	})
	if err != nil {
		logError(r.logger, logrus.Fields{"page_type": trimmedType}, err, "adding page")
		return 0, eris.Wrapf(err, "adding page of type %s", trimmedType)
	}

	return record.ID, nil
}

// Update replaces the content of an existing page.
func (r *GormPageRepository) Update(ctx context.Context, id uint, c content.Content) error {
	encoded, err := content.EncodeContent(c)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&PageRecord{}).Where("id = ?", id).Update("content", encoded)
	if result.Error != nil {
		logError(r.logger, logrus.Fields{"page_id": id}, result.Error, "updating page")
		return eris.Wrapf(result.Error, "updating page %d", id)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(ErrPageNotFound, "updating page %d", id)
	}

	return nil
}

// Delete removes a page. Its compiled outputs are cleaned up by the next pass.
func (r *GormPageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&PageRecord{}, id)
	if result.Error != nil {
		logError(r.logger, logrus.Fields{"page_id": id}, result.Error, "deleting page")
		return eris.Wrapf(result.Error, "deleting page %d", id)
	}
	if result.RowsAffected == 0 {
		return eris.Wrapf(ErrPageNotFound, "deleting page %d", id)
	}

	return nil
}

// Swap exchanges the ordering indices of each pair, in sequence, inside one
// transaction. An unknown index aborts the whole operation.
func (r *GormPageRepository) Swap(ctx context.Context, swaps [][2]int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, pair := range swaps {
			a, b := pair[0], pair[1]
			if a == b {
				continue
			}
			for _, ordering := range []int{a, b} {
				var count int64
				if err := tx.Model(&PageRecord{}).Where("ordering = ?", ordering).Count(&count).Error; err != nil {
					return eris.Wrapf(err, "checking ordering %d", ordering)
				}
				if count != 1 {
					return eris.Wrapf(ErrOrderingNotFound, "ordering %d", ordering)
				}
			}

			steps := []struct{ from, to int }{{a, -1}, {b, a}, {-1, b}}
			for _, step := range steps {
				result := tx.Model(&PageRecord{}).Where("ordering = ?", step.from).Update("ordering", step.to)
				if result.Error != nil {
					return eris.Wrapf(result.Error, "moving ordering %d to %d", step.from, step.to)
				}
				if result.RowsAffected != 1 {
					return eris.Errorf("moving ordering %d to %d affected %d rows", step.from, step.to, result.RowsAffected)
				}
			}
		}
		return nil
	})
	if err != nil {
		logError(r.logger, logrus.Fields{"swaps": len(swaps)}, err, "swapping page orderings")
		return eris.Wrap(err, "swapping page orderings")
	}

	return nil
}

func logError(logger *logrus.Logger, fields logrus.Fields, err error, message string) {
	if logger == nil {
		return
	}

	entry := logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
