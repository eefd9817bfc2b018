package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

func TestNewLoggerLevels(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	if logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info level by default, got %s", logger.GetLevel())
	}

	logger, err = NewLogger("DEBUG")
	if err != nil {
		t.Fatalf("NewLogger returned error: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	if _, err := NewLogger("loud"); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestProgressFormatterWritesJSONLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewProgressLogger(&buf, nil)

	logger.WithFields(logrus.Fields{"path": "/en", "lang": "en"}).Info("Compiled page")
	logger.Debug("Translated pages")
	logger.WithField("hash", "..").Warn("Refusing to write page")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %s", len(lines), buf.String())
	}

	want := []ProgressLine{
		{Type: ProgressOut, Data: "Compiled page lang=en path=/en"},
		{Type: ProgressOut, Data: "Translated pages"},
		{Type: ProgressErr, Data: "Refusing to write page hash=.."},
	}
	for i, raw := range lines {
		var got ProgressLine
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if got != want[i] {
			t.Fatalf("line %d: expected %#v, got %#v", i, want[i], got)
		}
	}
}

func TestProgressLoggerMirrorsToParent(t *testing.T) {
	t.Parallel()

	var parentBuf bytes.Buffer
	parent := logrus.New()
	parent.SetOutput(&parentBuf)
	parent.SetFormatter(&logrus.JSONFormatter{})
	parent.SetLevel(logrus.InfoLevel)

	var buf bytes.Buffer
	logger := NewProgressLogger(&buf, parent)

	logger.Debug("hidden from parent")
	logger.WithField("pass_id", "abc").Info("Site compiled")

	if strings.Contains(parentBuf.String(), "hidden from parent") {
		t.Fatalf("expected debug entry to respect parent level")
	}
	if !strings.Contains(parentBuf.String(), "Site compiled") || !strings.Contains(parentBuf.String(), "abc") {
		t.Fatalf("expected info entry to be mirrored, got %s", parentBuf.String())
	}
	if !strings.Contains(buf.String(), "hidden from parent") {
		t.Fatalf("expected progress stream to include debug entries")
	}
}

func TestInitSentryWithoutDSN(t *testing.T) {
	t.Parallel()

	hub, flush, err := InitSentry(logrus.New(), SentrySettings{})
	if err != nil {
		t.Fatalf("InitSentry returned error: %v", err)
	}
	if hub != nil {
		t.Fatalf("expected nil hub without DSN")
	}
	flush()

	CaptureError(hub, eris.New("ignored"), nil)
}
