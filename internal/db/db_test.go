package db

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error when no path supplied")
	}
}

func TestOpenCreatesDirectoryAndAppliesPragmas(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "data", "cms.db")

	database, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	var foreignKeys int
	if queryErr := database.Raw("PRAGMA foreign_keys;").Scan(&foreignKeys).Error; queryErr != nil {
		t.Fatalf("querying foreign_keys pragma failed: %v", queryErr)
	}
	if foreignKeys != 1 {
		t.Fatalf("expected foreign keys pragma to be enabled, got %d", foreignKeys)
	}

	var journalMode string
	if queryErr := database.Raw("PRAGMA journal_mode;").Scan(&journalMode).Error; queryErr != nil {
		t.Fatalf("querying journal_mode pragma failed: %v", queryErr)
	}
	if !strings.EqualFold(strings.TrimSpace(journalMode), "wal") {
		t.Fatalf("expected journal mode WAL, got %q", journalMode)
	}

	var busyTimeout int
	if queryErr := database.Raw("PRAGMA busy_timeout;").Scan(&busyTimeout).Error; queryErr != nil {
		t.Fatalf("querying busy_timeout pragma failed: %v", queryErr)
	}
	if expected := int((5 * time.Second) / time.Millisecond); busyTimeout != expected {
		t.Fatalf("expected busy timeout %d, got %d", expected, busyTimeout)
	}
}

func TestOpenHonoursConnectionLimits(t *testing.T) {
	t.Parallel()

	opts := Options{
		Path:         filepath.Join(t.TempDir(), "limits.db"),
		BusyTimeout:  1500 * time.Millisecond,
		MaxOpenConns: 3,
		MaxIdleConns: 2,
	}

	database, err := Open(opts)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	sqlDB, err := SQLDB(database)
	if err != nil {
		t.Fatalf("SQLDB returned error: %v", err)
	}
	if stats := sqlDB.Stats(); stats.MaxOpenConnections != opts.MaxOpenConns {
		t.Fatalf("expected MaxOpenConns %d, got %d", opts.MaxOpenConns, stats.MaxOpenConnections)
	}
}

func TestSQLDBWithNilDatabase(t *testing.T) {
	t.Parallel()

	if _, err := SQLDB(nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
	if err := Close(nil); err != nil {
		t.Fatalf("expected Close(nil) to be a no-op, got %v", err)
	}
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	gormLogger := NewGormLogger(base)
	gormLogger.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 0
	}, eris.Wrap(gorm.ErrRecordNotFound, "lookup"))

	if buf.Len() != 0 {
		t.Fatalf("expected record not found to be ignored, got %s", buf.String())
	}

	gormLogger.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT broken", 0
	}, eris.New("syntax error"))

	if !strings.Contains(buf.String(), "sql statement failed") {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
}

func TestGormLoggerSilentMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)

	silent := NewGormLogger(base).LogMode(logger.Silent)
	silent.Error(context.Background(), "boom %d", 1)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) { return "", 0 }, eris.New("boom"))

	if buf.Len() != 0 {
		t.Fatalf("expected silent logger to stay quiet, got %s", buf.String())
	}
}
