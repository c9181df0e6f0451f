// Package audit appends one JSON line per dispatch attempt to a local log.
//
// Records carry counts and lengths, not content. The raw body is written
// only when the caller explicitly opts in. Writing is best-effort: a
// failure is logged as a warning and never fails the operation.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"
)

// Operation names written to the log.
const (
	OpDraft        = "draft"
	OpSend         = "send"
	OpCalendarSend = "calendar_send"
	OpRespond      = "respond"
	OpCancel       = "cancel"
)

// Recipients holds per-line recipient counts.
type Recipients struct {
	ToCount  int `json:"to_count"`
	CCCount  int `json:"cc_count"`
	BCCCount int `json:"bcc_count"`
}

// Record is one line of the audit log.
type Record struct {
	Timestamp     string     `json:"timestamp"`
	Operation     string     `json:"operation"`
	Success       bool       `json:"success"`
	Recipients    Recipients `json:"recipients"`
	SubjectLength int        `json:"subject_length"`
	EntryID       string     `json:"entry_id,omitempty"`
	BodyIncluded  *bool      `json:"body_included,omitempty"`
	Body          string     `json:"body,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Entry is what a caller reports about one attempt.
type Entry struct {
	Operation string
	Err       error
	To        []string
	CC        []string
	BCC       []string
	Subject   string
	EntryID   string
	// IncludeBody opts Body into the record.
	IncludeBody bool
	Body        string
}

// Logger writes records to a JSONL file.
type Logger struct {
	path string
	now  func() time.Time
	log  *slog.Logger
	mu   sync.Mutex
}

// DefaultPath is %LOCALAPPDATA%/outlookctl/audit.log, or
// ~/.outlookctl/audit.log when LOCALAPPDATA is unset.
func DefaultPath() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return filepath.Join(dir, "outlookctl", "audit.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".outlookctl", "audit.log")
	}
	return filepath.Join(home, ".outlookctl", "audit.log")
}

// New returns a logger writing to path, or DefaultPath when path is empty.
func New(path string, log *slog.Logger) *Logger {
	if path == "" {
		path = DefaultPath()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Logger{path: path, now: time.Now, log: log}
}

// Path returns the log file location.
func (l *Logger) Path() string { return l.path }

// Build turns an entry into the record that would be written.
func (l *Logger) Build(e Entry) Record {
	r := Record{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Operation: e.Operation,
		Success:   e.Err == nil,
		Recipients: Recipients{
			ToCount:  len(e.To),
			CCCount:  len(e.CC),
			BCCCount: len(e.BCC),
		},
		SubjectLength: utf8.RuneCountInString(e.Subject),
		EntryID:       e.EntryID,
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	if e.IncludeBody {
		included := true
		r.BodyIncluded = &included
		r.Body = e.Body
	}
	return r
}

// Record appends one record. It never fails.
func (l *Logger) Record(e Entry) {
	if err := l.append(l.Build(e)); err != nil {
		l.log.Warn("audit log write failed", "operation", e.Operation, "path", l.path, "err", err)
	}
}

func (l *Logger) append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return fmt.Errorf("create audit directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// Read returns every record in the log at path. A missing file is empty.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("parse audit record: %w", err)
		}
		out = append(out, r)
	}
	return out, scanner.Err()
}
