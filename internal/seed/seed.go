package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"nodecms/app/internal/content"
)

// Store is the part of the page store the importer writes to.
type Store interface {
	Count(ctx context.Context) (int64, error)
	Add(ctx context.Context, pageType string, c content.Content) (uint, error)
}

// Entry is one page in a seed file.
type Entry struct {
	Type    string          `json:"type"`
	Content content.Content `json:"content"`
}

// Load parses a seed file. Numbers are kept as json.Number.
func Load(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reading seed file %s", path)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var entries []Entry
	if err := decoder.Decode(&entries); err != nil {
		return nil, eris.Wrapf(err, "decoding seed file %s", path)
	}

	for i, entry := range entries {
		if strings.TrimSpace(entry.Type) == "" {
			return nil, eris.Errorf("seed entry %d has no page type", i)
		}
	}

	return entries, nil
}

// Import adds the pages of the seed file at path when the store is empty.
// It returns the number of imported pages.
func Import(ctx context.Context, store Store, path string, logger *logrus.Logger) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, nil
	}

	count, err := store.Count(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "counting pages before seeding")
	}
	if count > 0 {
		if logger != nil {
			logger.WithField("pages", count).Debug("page store not empty; skipping seed import")
		}
		return 0, nil
	}

	entries, err := Load(path)
	if err != nil {
		return 0, err
	}

	for i, entry := range entries {
		if _, err := store.Add(ctx, entry.Type, entry.Content); err != nil {
			return i, eris.Wrapf(err, "importing seed entry %d", i)
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"path":  path,
			"pages": len(entries),
		}).Info("imported seed pages")
	}

	return len(entries), nil
}
