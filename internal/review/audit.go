package review

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
)

// AuditRecord is one oracle interaction, exactly as exchanged.
type AuditRecord struct {
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// AuditLog is an append-only, newline-delimited JSON trace of every oracle
// call. The file is created (with parent directories) on first write, and
// entries appear in call order, so the log is a faithful execution trace
// even after an aborted run.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog returns an audit log writing to path.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Append writes one prompt/response record. Each call opens, appends and
// closes the file, so a crash never loses previously flushed entries.
func (l *AuditLog) Append(prompt, response string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "review: create audit log dir")
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrap(err, "review: open audit log")
	}
	defer f.Close()

	line, err := json.Marshal(AuditRecord{Prompt: prompt, Response: response})
	if err != nil {
		return eris.Wrap(err, "review: marshal audit record")
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return eris.Wrap(err, "review: write audit record")
	}
	return nil
}
