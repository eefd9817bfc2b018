package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"nodecms/app/internal/db"
	applog "nodecms/app/internal/log"
)

const (
	htmlContentType     = "text/html; charset=utf-8"
	progressContentType = "application/jsonl"
	compileFinished     = "Site compilation finished"
)

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) registerCompileRoute() {
	huma.Post(s.api, "/api/compile", s.compileHandler, func(op *huma.Operation) {
		op.Summary = "Compile the site"
		op.Description = "Runs a compilation pass and streams its progress as JSON lines."
		op.Metadata = map[string]any{rateLimitedKey: true}
		op.Responses = map[string]*huma.Response{
			"200": {
				Description: "Progress stream",
				Content: map[string]*huma.MediaType{
					progressContentType: {Schema: &huma.Schema{Type: "string"}},
				},
			},
			"429": {Description: stdhttp.StatusText(stdhttp.StatusTooManyRequests)},
		}
	})
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

// compileHandler streams the pass progress. The final line reports the
// outcome: an "out" line on success, an "err" line carrying the failure.
func (s *Server) compileHandler(_ context.Context, _ *struct{}) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", progressContentType)
			hctx.SetHeader("Cache-Control", "no-cache")
			hctx.SetStatus(stdhttp.StatusOK)

			w := newFlushWriter(hctx.BodyWriter())
			var progress logrus.FieldLogger = applog.NewProgressLogger(w, s.logger)
			if requestID := RequestIDFromContext(hctx.Context()); requestID != "" {
				progress = progress.WithField("request_id", requestID)
			}

			summary, err := s.runner.Run(hctx.Context(), progress)
			if err != nil {
				writeProgressLine(w, applog.ProgressLine{Type: applog.ProgressErr, Data: err.Error()})
				return
			}

			writeProgressLine(w, applog.ProgressLine{
				Type: applog.ProgressOut,
				Data: fmt.Sprintf("%s in %dms: %d written, %d kept, %d removed",
					compileFinished, summary.Duration.Milliseconds(), summary.Written, summary.Kept, summary.Removed),
			})
		},
	}, nil
}

func writeProgressLine(w io.Writer, line applog.ProgressLine) {
	encoded, err := json.Marshal(line)
	if err != nil {
		return
	}
	_, _ = w.Write(append(encoded, '\n'))
}

// flushWriter pushes every write to the client immediately.
type flushWriter struct {
	w  io.Writer
	rc *stdhttp.ResponseController
}

func newFlushWriter(w io.Writer) *flushWriter {
	fw := &flushWriter{w: w}
	if rw, ok := w.(stdhttp.ResponseWriter); ok {
		fw.rc = stdhttp.NewResponseController(rw)
	}
	return fw
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if err != nil {
		return n, err
	}
	if f.rc != nil {
		_ = f.rc.Flush()
	}
	return n, nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
