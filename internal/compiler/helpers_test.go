package compiler

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"nodecms/app/internal/content"
	"nodecms/app/internal/pagetype"
)

type memoryPages struct {
	mu    sync.Mutex
	pages []content.Page
	err   error
}

func (m *memoryPages) List(context.Context) ([]content.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := make([]content.Page, len(m.pages))
	copy(out, m.pages)
	return out, nil
}

func (m *memoryPages) set(pages ...content.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = pages
}

type memoryIndex struct {
	mu        sync.Mutex
	rows      map[string]content.CompiledPage
	upserted  int
	deleted   int
	addAllErr error
}

func newMemoryIndex() *memoryIndex {
	return &memoryIndex{rows: make(map[string]content.CompiledPage)}
}

func (m *memoryIndex) List(context.Context) ([]content.CompiledPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *memoryIndex) AddAll(_ context.Context, entries []content.CompiledPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.addAllErr != nil {
		return m.addAllErr
	}
	for _, entry := range entries {
		m.rows[entry.Path] = entry
	}
	m.upserted += len(entries)
	return nil
}

func (m *memoryIndex) DeletePaths(_ context.Context, paths []string) ([]content.CompiledPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, path := range paths {
		if _, ok := m.rows[path]; ok {
			delete(m.rows, path)
			m.deleted++
		}
	}
	return m.sorted(), nil
}

func (m *memoryIndex) get(path string) (content.CompiledPage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.rows[path]
	return entry, ok
}

func (m *memoryIndex) mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserted + m.deleted
}

func (m *memoryIndex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *memoryIndex) sorted() []content.CompiledPage {
	entries := make([]content.CompiledPage, 0, len(m.rows))
	for _, entry := range m.rows {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// renderCounter counts html generator invocations per page type.
type renderCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRenderCounter() *renderCounter {
	return &renderCounter{counts: make(map[string]int)}
}

func (r *renderCounter) inc(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
}

func (r *renderCounter) get(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// listType renders /<lang>/<name>/<id> with the resolved title.
func listType(name string, counter *renderCounter) pagetype.Handler {
	return pagetype.Handler{
		Template: content.Template{"title": content.String},
		Kind: pagetype.List{
			Path: func(_ context.Context, in pagetype.Input) (string, error) {
				return fmt.Sprintf("/%s/%s/%d", in.Lang, name, in.PageID), nil
			},
			HTML: func(_ context.Context, in pagetype.Input) (string, error) {
				counter.inc(name)
				return fmt.Sprintf("<h1>%v</h1>", in.Content["title"]), nil
			},
		},
	}
}

// indexType renders /<lang> listing the titles of the pages of source.
func indexType(name, source string, counter *renderCounter) pagetype.Handler {
	return pagetype.Handler{
		Template: content.Template{"heading": content.String},
		Kind: pagetype.Single{
			Path: func(_ context.Context, in pagetype.Input) (string, error) {
				return "/" + in.Lang, nil
			},
			HTML: func(_ context.Context, in pagetype.Input) (string, error) {
				counter.inc(name)
				pages, err := in.Pages.PagesOfType(source)
				if err != nil {
					return "", err
				}
				html := fmt.Sprintf("<h1>%v</h1>", in.Content["heading"])
				for _, page := range pages {
					html += fmt.Sprintf("<li>%v</li>", page.Content[in.Lang]["title"])
				}
				return html, nil
			},
		},
	}
}

func mustRegister(t *testing.T, registry *pagetype.Registry, name string, handler pagetype.Handler) {
	t.Helper()

	if err := registry.Register(name, handler); err != nil {
		t.Fatalf("Register(%s) returned error: %v", name, err)
	}
}

func newTestCompiler(t *testing.T, root string, langs []string, registry *pagetype.Registry, pages PageSource, index Index) *Compiler {
	t.Helper()

	compiler, err := New(Options{Root: root, Langs: langs, Registry: registry, Pages: pages, Index: index})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return compiler
}

func mustCompile(t *testing.T, compiler *Compiler) Summary {
	t.Helper()

	summary, err := compiler.Compile(context.Background(), silentLogger())
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	return summary
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func localized(values ...string) map[string]any {
	out := make(map[string]any, len(values)/2)
	for i := 0; i+1 < len(values); i += 2 {
		out[values[i]] = values[i+1]
	}
	return out
}

func readArtifact(t *testing.T, root, hash string) string {
	t.Helper()

	raw, err := os.ReadFile(filepath.Join(root, PagesDir, hash+pageExtension))
	if err != nil {
		t.Fatalf("reading artifact %s: %v", hash, err)
	}
	return string(raw)
}

func artifactExists(root, hash string) bool {
	_, err := os.Stat(filepath.Join(root, PagesDir, hash+pageExtension))
	return err == nil
}

func artifactCount(t *testing.T, root string) int {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(root, PagesDir))
	if err != nil {
		t.Fatalf("reading pages dir: %v", err)
	}
	return len(entries)
}
