package log

import (
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// NewLogger constructs a logrus logger configured with JSON output and the provided log level.
func NewLogger(level string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(false)
	logger.SetLevel(logrus.InfoLevel)

	if level == "" {
		return logger, nil
	}

	parsedLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, eris.Wrapf(err, "invalid log level: %s", level)
	}

	logger.SetLevel(parsedLevel)
	return logger, nil
}

// NewProgressLogger returns a logger that renders every entry at debug level
// or above as a progress line on w. Entries are mirrored to parent when it
// is set.
func NewProgressLogger(w io.Writer, parent *logrus.Logger) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&ProgressFormatter{})
	logger.SetLevel(logrus.DebugLevel)

	if parent != nil {
		logger.AddHook(&mirrorHook{parent: parent})
	}

	return logger
}

// mirrorHook forwards entries to another logger, respecting its level.
type mirrorHook struct {
	parent *logrus.Logger
}

func (h *mirrorHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *mirrorHook) Fire(entry *logrus.Entry) error {
	if !h.parent.IsLevelEnabled(entry.Level) {
		return nil
	}
	h.parent.WithFields(entry.Data).WithTime(entry.Time).Log(entry.Level, entry.Message)
	return nil
}
