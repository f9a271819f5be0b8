package distill

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Unit outcomes recorded in the run log.
const (
	OutcomeSummarized = "summarized"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
)

// snippetMaxChars bounds the summary snippet stored in run-log rows.
const snippetMaxChars = 600

// UnitRecord is one row in the run log: the outcome of processing one chunk.
type UnitRecord struct {
	RunID      string `json:"run_id"`
	ChunkIndex int    `json:"chunk_index"`
	ChunkChars int    `json:"chunk_chars"`
	ElapsedMS  int64  `json:"elapsed_ms"`
	TokensUsed int64  `json:"tokens_used,omitempty"`
	Outcome    string `json:"outcome"`

	// Summary is a shortened snippet for quick scanning; the full summary
	// only lives in memory during the run.
	Summary string `json:"summary,omitempty"`
	Err     string `json:"error,omitempty"`
}

// RunLog appends one JSONL row per processed unit. Purely observational: run
// correctness never depends on it.
type RunLog struct {
	f *os.File
	w *bufio.Writer
}

// OpenRunLog opens (creating if needed) an append-mode run log.
func OpenRunLog(path string) (*RunLog, error) {
	if path == "" {
		return nil, errors.New("OpenRunLog: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("OpenRunLog: mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("OpenRunLog: open: %w", err)
	}
	return &RunLog{f: f, w: bufio.NewWriterSize(f, 1<<16)}, nil
}

// Append writes one record as a single JSON line. A nil receiver is a no-op
// so callers can leave the log unconfigured.
func (l *RunLog) Append(rec UnitRecord) error {
	if l == nil {
		return nil
	}
	rec.Summary = SanitizeNewlines(Truncate(rec.Summary, snippetMaxChars))
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("RunLog: marshal record: %w", err)
	}
	if _, err := l.w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("RunLog: write record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *RunLog) Close() error {
	if l == nil {
		return nil
	}
	if err := l.w.Flush(); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("RunLog: flush: %w", err)
	}
	return l.f.Close()
}
