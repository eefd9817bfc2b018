package compiler

import (
	"context"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	applog "nodecms/app/internal/log"
)

// Runner serialises passes: at most one Compile is in flight at a time.
type Runner struct {
	compiler  *Compiler
	logger    *logrus.Logger
	sentryHub *sentry.Hub

	mu      sync.Mutex
	pending chan struct{}
}

// NewRunner wires a runner around a compiler.
func NewRunner(compiler *Compiler, logger *logrus.Logger, hub *sentry.Hub) (*Runner, error) {
	if compiler == nil {
		return nil, eris.New("compiler is required")
	}
	if logger == nil {
		return nil, eris.New("logger is required")
	}

	return &Runner{
		compiler:  compiler,
		logger:    logger,
		sentryHub: hub,
		pending:   make(chan struct{}, 1),
	}, nil
}

// Run executes one pass and waits for it. Progress goes to progress when it is
// set, otherwise to the runner's logger. A pass always runs to completion once
// started, even if ctx is cancelled meanwhile.
func (r *Runner) Run(ctx context.Context, progress logrus.FieldLogger) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	passID := uuid.NewString()
	if progress == nil {
		progress = r.logger
	}

	summary, err := r.compiler.Compile(context.WithoutCancel(ctx), progress.WithField("pass_id", passID))
	if err != nil {
		r.recordError(passID, err)
		return summary, err
	}

	r.logger.WithFields(logrus.Fields{
		"pass_id":     passID,
		"duration_ms": summary.Duration.Milliseconds(),
		"written":     summary.Written,
		"removed":     summary.Removed,
	}).Info("Compilation pass finished")

	return summary, nil
}

// Trigger requests a background pass. Triggers that arrive while one is
// already queued are coalesced into it.
func (r *Runner) Trigger() {
	select {
	case r.pending <- struct{}{}:
	default:
	}
}

// Start processes triggered passes until ctx is done.
func (r *Runner) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.pending:
			// Failures are already logged and reported by Run.
			_, _ = r.Run(ctx, nil)
		}
	}
}

func (r *Runner) recordError(passID string, err error) {
	r.logger.WithFields(logrus.Fields{
		"error":   err.Error(),
		"pass_id": passID,
	}).Error("compilation pass failed")

	applog.CaptureError(r.sentryHub, err, map[string]string{"pass_id": passID})
}
