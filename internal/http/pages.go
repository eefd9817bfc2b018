package http

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	stdhttp "net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"nodecms/app/internal/compiler"
	"nodecms/app/internal/http/templates"
)

const (
	notFoundMessage      = "The page you are looking for does not exist."
	pendingMessage       = "This page is being rebuilt. Please try again shortly."
	errorFallbackMessage = "We couldn't process your request right now."
)

func (s *Server) registerContentRoute() {
	dir := filepath.Join(s.webroot, compiler.ContentDir)
	handler := stdhttp.StripPrefix("/"+compiler.ContentDir+"/", stdhttp.FileServer(filesOnly{stdhttp.Dir(dir)}))

	s.mux.Handle("GET /"+compiler.ContentDir+"/", s.wrap("/"+compiler.ContentDir+"/", handler))
}

func (s *Server) registerPageRoute() {
	s.mux.Handle("GET /", s.wrap("/", stdhttp.HandlerFunc(s.pageHandler)))
}

// pageHandler serves the compiled artifact indexed under the request path.
func (s *Server) pageHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	pagePath := normalizePagePath(r.URL.Path)

	if pagePath == "/" {
		stdhttp.Redirect(w, r, "/"+s.langs[0], stdhttp.StatusFound)
		return
	}

	lang := s.langFor(pagePath)

	entry, err := s.index.GetByPath(ctx, pagePath)
	if err != nil {
		s.recordError(ctx, err, "looking up compiled page", logrus.Fields{"path": pagePath})
		s.writeErrorPage(ctx, w, lang, stdhttp.StatusInternalServerError, errorFallbackMessage)
		return
	}
	if entry == nil {
		s.writeErrorPage(ctx, w, lang, stdhttp.StatusNotFound, notFoundMessage)
		return
	}

	artifact, ok := compiler.ArtifactPath(s.webroot, entry.Hash)
	if !ok {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"path": pagePath, "hash": entry.Hash}).Warn("Refusing to serve page outside the pages directory")
		}
		s.writeErrorPage(ctx, w, lang, stdhttp.StatusNotFound, notFoundMessage)
		return
	}

	file, err := os.Open(artifact)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// The index is ahead of the disk; a pass restores the artifact.
			if s.logger != nil {
				s.logger.WithFields(logrus.Fields{"path": pagePath, "hash": entry.Hash}).Warn("Compiled page missing on disk")
			}
			s.runner.Trigger()
			s.writeErrorPage(ctx, w, lang, stdhttp.StatusNotFound, pendingMessage)
			return
		}
		s.recordError(ctx, err, "opening compiled page", logrus.Fields{"path": pagePath})
		s.writeErrorPage(ctx, w, lang, stdhttp.StatusInternalServerError, errorFallbackMessage)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		s.recordError(ctx, err, "reading compiled page", logrus.Fields{"path": pagePath})
		s.writeErrorPage(ctx, w, lang, stdhttp.StatusInternalServerError, errorFallbackMessage)
		return
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.Header().Set("Content-Language", lang)
	stdhttp.ServeContent(w, r, "", info.ModTime(), file)
}

func (s *Server) writeErrorPage(ctx context.Context, w stdhttp.ResponseWriter, lang string, status int, message string) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	body, err := renderComponent(ctx, templates.ErrorPage(templates.ErrorPageData{
		Lang:        lang,
		StatusLabel: label,
		Message:     message,
		HomeURL:     "/" + lang,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		body = []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
	}

	w.Header().Set("Content-Type", htmlContentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// langFor picks the language of the leading path segment, falling back to
// the default language.
func (s *Server) langFor(pagePath string) string {
	segment := strings.SplitN(strings.TrimPrefix(pagePath, "/"), "/", 2)[0]
	for _, lang := range s.langs {
		if lang == segment {
			return lang
		}
	}
	return s.langs[0]
}

// normalizePagePath cleans the request path and drops any trailing slash.
func normalizePagePath(raw string) string {
	if raw == "" {
		return "/"
	}
	cleaned := path.Clean("/" + raw)
	if cleaned != "/" {
		cleaned = strings.TrimSuffix(cleaned, "/")
	}
	return cleaned
}

// filesOnly hides directories so the file server never lists them.
type filesOnly struct {
	root stdhttp.FileSystem
}

func (f filesOnly) Open(name string) (stdhttp.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fs.ErrNotExist
	}

	return file, nil
}
