package telemetry

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes JSON-lines events. A nil receiver and an empty path are both
// valid and discard everything, so call sites never guard their logging.
type Logger struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func NewLogger(path string) (*Logger, error) {
	if path == "" {
		return &Logger{w: nopCloser{Writer: io.Discard}}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{w: f}, nil
}

func (l *Logger) Info(msg string, fields map[string]any) { l.log("info", msg, fields) }

// Warn is for degraded-but-continuing conditions, like a persistence write
// rejected for quota.
func (l *Logger) Warn(msg string, fields map[string]any) { l.log("warn", msg, fields) }

func (l *Logger) Error(msg string, fields map[string]any) { l.log("error", msg, fields) }

func (l *Logger) log(level, msg string, fields map[string]any) {
	if l == nil || l.w == nil {
		return
	}
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, _ := json.Marshal(entry)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.w.Write(append(b, '\n'))
}

func (l *Logger) Close() error {
	if l == nil || l.w == nil {
		return nil
	}
	return l.w.Close()
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
