package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TrailWriter mirrors each session's event trail to an append-only JSONL
// file, one file per session, for offline replay and debugging. Failures
// here are logged by callers and never block the live pipeline.
type TrailWriter struct {
	dir string
	mu  sync.Mutex
}

func NewTrailWriter(dir string) *TrailWriter {
	return &TrailWriter{dir: dir}
}

// Append writes one record tagged with its kind and arrival time.
func (w *TrailWriter) Append(sessionID, kind string, record any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	path := w.Path(sessionID)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	line, err := json.Marshal(map[string]any{
		"kind": kind,
		"at":   time.Now().UTC().Format(time.RFC3339Nano),
		"data": record,
	})
	if err != nil {
		return fmt.Errorf("marshal trail record: %w", err)
	}

	if _, err := fmt.Fprintln(f, string(line)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

// Path returns the session's trail file location.
func (w *TrailWriter) Path(sessionID string) string {
	return filepath.Join(w.dir, sessionID+".jsonl")
}
