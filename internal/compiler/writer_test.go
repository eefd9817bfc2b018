package compiler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContentHashIsDeterministic(t *testing.T) {
	t.Parallel()

	en := "en"
	resolved := map[string]any{"title": "Hi", "tags": []any{map[string]any{"b": 2, "a": 1}}}

	first, err := contentHash("post", &en, resolved, 1)
	if err != nil {
		t.Fatalf("contentHash returned error: %v", err)
	}
	second, err := contentHash("post", &en, map[string]any{"tags": []any{map[string]any{"a": 1, "b": 2}}, "title": "Hi"}, 1)
	if err != nil {
		t.Fatalf("contentHash returned error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical hashes, got %s and %s", first, second)
	}
	if len(first) != hashBytes*2 {
		t.Fatalf("expected %d hex characters, got %d", hashBytes*2, len(first))
	}

	fr := "fr"
	variants := map[string]func() (string, error){
		"type":    func() (string, error) { return contentHash("page", &en, resolved, 1) },
		"lang":    func() (string, error) { return contentHash("post", &fr, resolved, 1) },
		"no lang": func() (string, error) { return contentHash("post", nil, resolved, 1) },
		"content": func() (string, error) { return contentHash("post", &en, map[string]any{"title": "Hello"}, 1) },
		"id":      func() (string, error) { return contentHash("post", &en, resolved, 2) },
	}
	for name, variant := range variants {
		hash, err := variant()
		if err != nil {
			t.Fatalf("%s: contentHash returned error: %v", name, err)
		}
		if hash == first {
			t.Fatalf("%s: expected hash to change", name)
		}
	}
}

func TestArtifactPathStaysInsideRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	target, safe := ArtifactPath(root, "0123abcd")
	if !safe {
		t.Fatalf("expected hash path to be inside the root")
	}
	if want := filepath.Join(root, PagesDir, "0123abcd.html"); target != want {
		t.Fatalf("expected %s, got %s", want, target)
	}

	for _, hash := range []string{"../../escape", "../../../etc/passwd"} {
		if _, safe := ArtifactPath(root, hash); safe {
			t.Fatalf("expected %q to be rejected", hash)
		}
	}
}

func TestWriterSkipsUnsafeTargets(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "site")
	w, err := newWriter(root)
	if err != nil {
		t.Fatalf("newWriter returned error: %v", err)
	}
	if err := w.ensureLayout(); err != nil {
		t.Fatalf("ensureLayout returned error: %v", err)
	}

	written, err := w.write("../../outside", "<p>nope</p>", silentLogger())
	if err != nil {
		t.Fatalf("expected unsafe write to be skipped without error, got %v", err)
	}
	if written {
		t.Fatalf("expected unsafe write to be skipped")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "outside.html")); !os.IsNotExist(err) {
		t.Fatalf("expected no file outside the root, got %v", err)
	}

	written, err = w.write("abc", "<p>ok</p>", silentLogger())
	if err != nil || !written {
		t.Fatalf("expected write to succeed, got %v", err)
	}
	info, err := os.Stat(filepath.Join(root, PagesDir, "abc.html"))
	if err != nil {
		t.Fatalf("stat artifact: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("expected 0644 permissions, got %v", info.Mode().Perm())
	}
}

func TestWriterSweepKeepsReferencedFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, err := newWriter(root)
	if err != nil {
		t.Fatalf("newWriter returned error: %v", err)
	}
	if err := w.ensureLayout(); err != nil {
		t.Fatalf("ensureLayout returned error: %v", err)
	}

	files := []string{"keep.html", "drop.html", ".tmp-123.html", "notes.txt"}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(root, PagesDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	removed, err := w.sweep(map[string]struct{}{"keep": {}}, silentLogger())
	if err != nil {
		t.Fatalf("sweep returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed files, got %d", removed)
	}

	for name, want := range map[string]bool{"keep.html": true, "drop.html": false, ".tmp-123.html": false, "notes.txt": true} {
		_, err := os.Stat(filepath.Join(root, PagesDir, name))
		if exists := err == nil; exists != want {
			t.Fatalf("%s: expected exists=%v", name, want)
		}
	}
}
