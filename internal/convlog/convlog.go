// Package convlog maintains the append-only conversation log: one
// file per calendar day, one framed record per agent exchange. Records
// are never mutated; total ordering within a day is append order.
package convlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const separator = "======================================================================"

// Entry is one recorded exchange.
type Entry struct {
	Timestamp time.Time
	TaskID    string
	Prompt    string
	Response  string
}

// Log appends conversation records to dated files in a directory.
type Log struct {
	dir string
	mu  sync.Mutex

	// now is swapped in tests to pin the date.
	now func() time.Time
}

// New creates a conversation log rooted at dir. The directory is
// created on first append.
func New(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

// Path returns the log file for today.
func (l *Log) Path() string {
	return l.fileFor(l.now())
}

// Append writes one conversation record to today's file. taskID may be
// empty.
func (l *Log) Append(prompt, response, taskID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	now := l.now()
	f, err := os.OpenFile(l.fileFor(now), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open conversation log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatEntry(now, taskID, prompt, response)); err != nil {
		return fmt.Errorf("failed to append conversation: %w", err)
	}

	return nil
}

func (l *Log) fileFor(t time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("conversation_%s.log", t.Format("2006-01-02")))
}

func formatEntry(t time.Time, taskID, prompt, response string) string {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(separator)
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[%s]", t.Format("2006-01-02 15:04:05")))
	if taskID != "" {
		sb.WriteString(fmt.Sprintf(" Task ID: %s", taskID))
	}
	sb.WriteString("\n\nPROMPT:\n")
	sb.WriteString(prompt)
	sb.WriteString("\n\nRESPONSE:\n")
	sb.WriteString(response)
	sb.WriteString("\n\n")
	sb.WriteString(separator)
	sb.WriteString("\n")

	return sb.String()
}
