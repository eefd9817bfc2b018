package seed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"nodecms/app/internal/content"
)

type stubStore struct {
	count  int64
	added  []Entry
	addErr error
}

func (s *stubStore) Count(context.Context) (int64, error) {
	return s.count, nil
}

func (s *stubStore) Add(_ context.Context, pageType string, c content.Content) (uint, error) {
	if s.addErr != nil {
		return 0, s.addErr
	}
	s.added = append(s.added, Entry{Type: pageType, Content: c})
	return uint(len(s.added)), nil
}

func writeSeed(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}
	return path
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestImportIntoEmptyStore(t *testing.T) {
	t.Parallel()

	path := writeSeed(t, `[
		{"type":"settings","content":{"site_title":{"en":"Notes"}}},
		{"type":"home","content":{"heading":{"en":"Hi"},"limit":3}}
	]`)
	store := &stubStore{}

	imported, err := Import(context.Background(), store, path, silentLogger())
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if imported != 2 || len(store.added) != 2 {
		t.Fatalf("expected 2 imported pages, got %d", imported)
	}
	if store.added[0].Type != "settings" || store.added[1].Type != "home" {
		t.Fatalf("unexpected import order %#v", store.added)
	}
	if limit, ok := store.added[1].Content["limit"].(json.Number); !ok || limit.String() != "3" {
		t.Fatalf("expected limit to stay a json.Number, got %#v", store.added[1].Content["limit"])
	}
}

func TestImportSkipsNonEmptyStore(t *testing.T) {
	t.Parallel()

	store := &stubStore{count: 1}
	imported, err := Import(context.Background(), store, "/does/not/exist.json", silentLogger())
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if imported != 0 || len(store.added) != 0 {
		t.Fatalf("expected no import into a non-empty store")
	}
}

func TestImportWithoutPath(t *testing.T) {
	t.Parallel()

	imported, err := Import(context.Background(), &stubStore{}, "  ", nil)
	if err != nil || imported != 0 {
		t.Fatalf("expected no-op without path, got %d (%v)", imported, err)
	}
}

func TestImportErrors(t *testing.T) {
	t.Parallel()

	if _, err := Import(context.Background(), &stubStore{}, writeSeed(t, `{"type":"post"}`), nil); err == nil {
		t.Fatalf("expected error for non-array seed file")
	}
	if _, err := Import(context.Background(), &stubStore{}, writeSeed(t, `[{"content":{}}]`), nil); err == nil {
		t.Fatalf("expected error for entry without type")
	}

	boom := errors.New("insert failed")
	imported, err := Import(context.Background(), &stubStore{addErr: boom}, writeSeed(t, `[{"type":"post","content":{}}]`), nil)
	if !errors.Is(err, boom) || imported != 0 {
		t.Fatalf("expected store error, got %d (%v)", imported, err)
	}
}
