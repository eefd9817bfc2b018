package store

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the page store and compiled-page index schema using Gorm's
// AutoMigrate and logs progress.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "store.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying store schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&PageRecord{}, &CompiledPageRecord{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("store schema migration failed")
		}
		return eris.Wrap(err, "auto migrating store schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("store schema migration complete")
	}

	return nil
}
