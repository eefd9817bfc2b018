package store

import (
	"time"

	"nodecms/app/internal/content"
)

// PageRecord is the persisted form of a page. Content is stored as JSON.
type PageRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Ordering  int    `gorm:"uniqueIndex:idx_pages_ordering;not null"`
	PageType  string `gorm:"size:255;index:idx_pages_page_type;not null"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "pages"
}

// CompiledPageRecord is one row of the compiled-page index. There is no
// foreign key to pages: rows of deleted pages must survive until the next
// pass reconciles them.
type CompiledPageRecord struct {
	ID        uint   `gorm:"primaryKey"`
	PageID    uint   `gorm:"index:idx_compiled_pages_page;not null"`
	PageType  string `gorm:"size:255;not null;default:''"`
	Lang      string `gorm:"size:32;index:idx_compiled_pages_page;not null;default:''"`
	Path      string `gorm:"size:1024;uniqueIndex:idx_compiled_pages_path;not null"`
	Hash      string `gorm:"size:64;index:idx_compiled_pages_hash;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName defines the table name for the CompiledPageRecord model.
func (CompiledPageRecord) TableName() string {
	return "compiled_pages"
}

func (r CompiledPageRecord) entry() content.CompiledPage {
	return content.CompiledPage{
		PageID:   r.PageID,
		PageType: r.PageType,
		Lang:     r.Lang,
		Path:     r.Path,
		Hash:     r.Hash,
	}
}
