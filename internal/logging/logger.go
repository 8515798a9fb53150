// Package logging provides leveled logging and change tracing for cantina.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A ChangeLogger for structured JSONL edit history (.cantina/changes.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for full content logging.
// At this level, per-candidate similarity scores and other verbose content
// are included.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Label the custom trace level
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ChangeLogger writes catalog edit events to a JSONL file, giving every
// import, field update, copy, and rename a durable audit trail.
// It is safe for concurrent use. A nil ChangeLogger is safe to use;
// all methods are no-ops on nil receiver.
type ChangeLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewChangeLogger creates a change logger writing to dir/changes.jsonl.
// When enabled is false, returns nil and no file is created.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewChangeLogger(dir string, enabled bool) *ChangeLogger {
	if !enabled {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "changes.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &ChangeLogger{file: f}
}

// Log writes a change event as a single JSONL line. The event name lands in
// the "event" field and a "time" field is added automatically. The caller's
// map is not mutated. Safe to call on nil receiver.
func (cl *ChangeLogger) Log(event string, fields map[string]any) {
	if cl == nil || cl.file == nil {
		return
	}

	// Copy to avoid mutating caller's map
	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = event
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	cl.mu.Lock()
	defer cl.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = cl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (cl *ChangeLogger) Close() {
	if cl == nil || cl.file == nil {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.file.Close()
	cl.file = nil
}
