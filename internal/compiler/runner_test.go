package compiler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"nodecms/app/internal/content"
	"nodecms/app/internal/pagetype"
)

// trackingPages records how many passes read pages at the same time.
type trackingPages struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (p *trackingPages) List(context.Context) ([]content.Page, error) {
	current := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	p.calls.Add(1)

	for {
		peak := p.peak.Load()
		if current <= peak || p.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

func TestNewRunnerRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewRunner(nil, silentLogger(), nil); err == nil {
		t.Fatalf("expected error when compiler is nil")
	}

	compiler := newTestCompiler(t, t.TempDir(), []string{"en"}, pagetype.NewRegistry(), &memoryPages{}, newMemoryIndex())
	if _, err := NewRunner(compiler, nil, nil); err == nil {
		t.Fatalf("expected error when logger is nil")
	}
}

func TestRunnerSerialisesPasses(t *testing.T) {
	t.Parallel()

	pages := &trackingPages{}
	compiler := newTestCompiler(t, t.TempDir(), []string{"en"}, pagetype.NewRegistry(), pages, newMemoryIndex())
	runner, err := NewRunner(compiler, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := runner.Run(context.Background(), nil); err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if pages.calls.Load() != 4 {
		t.Fatalf("expected 4 passes, got %d", pages.calls.Load())
	}
	if pages.peak.Load() != 1 {
		t.Fatalf("expected passes to never overlap, peak was %d", pages.peak.Load())
	}
}

func TestRunnerStreamsProgressWithPassID(t *testing.T) {
	t.Parallel()

	compiler := newTestCompiler(t, t.TempDir(), []string{"en"}, pagetype.NewRegistry(), &memoryPages{}, newMemoryIndex())
	runner, err := NewRunner(compiler, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	var buf bytes.Buffer
	progress := logrus.New()
	progress.SetOutput(&buf)
	progress.SetFormatter(&logrus.JSONFormatter{})

	if _, err := runner.Run(context.Background(), progress); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Site compiled") || !strings.Contains(output, "pass_id") {
		t.Fatalf("expected progress lines with pass id, got %s", output)
	}
}

func TestRunnerCompletesPassAfterCancellation(t *testing.T) {
	t.Parallel()

	compiler := newTestCompiler(t, t.TempDir(), []string{"en"}, pagetype.NewRegistry(), &memoryPages{}, newMemoryIndex())
	runner, err := NewRunner(compiler, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := runner.Run(ctx, nil); err != nil {
		t.Fatalf("expected pass to run despite cancelled context, got %v", err)
	}
}

func TestRunnerReturnsPassErrors(t *testing.T) {
	t.Parallel()

	pages := &memoryPages{err: errors.New("database unavailable")}
	compiler := newTestCompiler(t, t.TempDir(), []string{"en"}, pagetype.NewRegistry(), pages, newMemoryIndex())
	runner, err := NewRunner(compiler, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	if _, err := runner.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected pass error to be returned")
	}
}

func TestRunnerCoalescesTriggers(t *testing.T) {
	t.Parallel()

	pages := &trackingPages{}
	compiler := newTestCompiler(t, t.TempDir(), []string{"en"}, pagetype.NewRegistry(), pages, newMemoryIndex())
	runner, err := NewRunner(compiler, silentLogger(), nil)
	if err != nil {
		t.Fatalf("NewRunner returned error: %v", err)
	}

	runner.Trigger()
	runner.Trigger()
	runner.Trigger()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for pages.calls.Load() < 1 {
		select {
		case <-deadline:
			t.Fatalf("expected triggered pass to run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if calls := pages.calls.Load(); calls != 1 {
		t.Fatalf("expected queued triggers to coalesce into one pass, got %d", calls)
	}
}
