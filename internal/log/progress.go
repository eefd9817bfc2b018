package log

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Progress line types.
const (
	ProgressOut = "out"
	ProgressErr = "err"
)

// ProgressLine is one JSONL record of a progress stream.
type ProgressLine struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ProgressFormatter renders entries as JSONL progress lines. Warnings and
// errors become "err" lines, everything else "out" lines. Fields are appended
// to the message as key=value pairs in key order.
type ProgressFormatter struct{}

// Format implements logrus.Formatter.
func (f *ProgressFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	line := ProgressLine{Type: ProgressOut, Data: progressText(entry)}
	if entry.Level <= logrus.WarnLevel {
		line.Type = ProgressErr
	}

	encoded, err := json.Marshal(line)
	if err != nil {
		return nil, eris.Wrap(err, "encoding progress line")
	}
	return append(encoded, '\n'), nil
}

func progressText(entry *logrus.Entry) string {
	if len(entry.Data) == 0 {
		return entry.Message
	}

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(entry.Message)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
	}
	return b.String()
}
