package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

const (
	// ContentDir holds source assets and is never touched by a pass.
	ContentDir = "content"
	// PagesDir holds the generated artifacts, one per hash.
	PagesDir = "pages"

	pageExtension = ".html"
	tempPattern   = ".tmp-*" + pageExtension
	tempPrefix    = ".tmp-"
)

// writer stores generated HTML under content-addressed filenames.
type writer struct {
	root     string
	pagesDir string
}

func newWriter(root string) (*writer, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, eris.New("output root is required")
	}

	absRoot, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, eris.Wrapf(err, "resolving output root %s", trimmed)
	}

	return &writer{root: absRoot, pagesDir: filepath.Join(absRoot, PagesDir)}, nil
}

// ensureLayout creates the root and its required subdirectories.
func (w *writer) ensureLayout() error {
	for _, dir := range []string{w.root, filepath.Join(w.root, ContentDir), w.pagesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "creating directory %s", dir)
		}
	}
	return nil
}

// ArtifactPath returns the location of the artifact for a hash and whether
// that location lies inside root.
func ArtifactPath(root, hash string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}

	target := filepath.Join(absRoot, PagesDir, hash+pageExtension)
	rel, err := filepath.Rel(absRoot, target)
	if err != nil || rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return target, false
	}
	return target, true
}

func (w *writer) exists(hash string) bool {
	target, safe := ArtifactPath(w.root, hash)
	if !safe {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

// write stores html for hash. It returns false without error when the target
// escapes the root; nothing is written in that case.
func (w *writer) write(hash, html string, logger logrus.FieldLogger) (bool, error) {
	target, safe := ArtifactPath(w.root, hash)
	if !safe {
		logger.WithFields(logrus.Fields{"hash": hash, "target": target}).Warn("Refusing to write page outside of the output root")
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), tempPattern)
	if err != nil {
		return false, eris.Wrapf(err, "creating temporary file for %s", target)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(html); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return false, eris.Wrapf(err, "writing %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return false, eris.Wrapf(err, "closing %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return false, eris.Wrapf(err, "setting permissions on %s", tmpName)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return false, eris.Wrapf(err, "moving %s into place", target)
	}

	return true, nil
}

// sweep deletes every artifact whose hash is not referenced, plus leftover
// temporary files. It returns the number of removed files.
func (w *writer) sweep(referenced map[string]struct{}, logger logrus.FieldLogger) (int, error) {
	entries, err := os.ReadDir(w.pagesDir)
	if err != nil {
		return 0, eris.Wrapf(err, "reading %s", w.pagesDir)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, pageExtension) {
			continue
		}
		if !strings.HasPrefix(name, tempPrefix) {
			if _, ok := referenced[strings.TrimSuffix(name, pageExtension)]; ok {
				continue
			}
		}

		if err := os.Remove(filepath.Join(w.pagesDir, name)); err != nil && !os.IsNotExist(err) {
			return removed, eris.Wrapf(err, "removing %s", name)
		}
		logger.WithField("file", name).Debug("Removed unreferenced page file")
		removed++
	}

	return removed, nil
}
