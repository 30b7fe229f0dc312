// Package logstats reads conversation log files back into entries and
// produces a summary report. Malformed blocks are skipped rather than
// failing the whole analysis.
package logstats

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cronpilot/cronpilot/internal/convlog"
)

const timeLayout = "2006-01-02 15:04:05"

// Analyzer loads conversation logs from a directory.
type Analyzer struct {
	dir     string
	entries []convlog.Entry
}

// New creates an Analyzer over dir.
func New(dir string) *Analyzer {
	return &Analyzer{dir: dir}
}

// Load parses every conversation_*.log file in the directory.
func (a *Analyzer) Load() error {
	files, err := filepath.Glob(filepath.Join(a.dir, "conversation_*.log"))
	if err != nil {
		return fmt.Errorf("failed to list log files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		a.entries = append(a.entries, parseEntries(string(data))...)
	}

	return nil
}

// Entries returns the parsed conversation entries in file order.
func (a *Analyzer) Entries() []convlog.Entry {
	return a.entries
}

// parseEntries splits log content into framed blocks and extracts one
// Entry per block. Unparseable blocks are dropped.
func parseEntries(content string) []convlog.Entry {
	var entries []convlog.Entry

	for _, block := range strings.Split(content, "======================================================================") {
		if entry, ok := parseBlock(block); ok {
			entries = append(entries, entry)
		}
	}

	return entries
}

func parseBlock(block string) (convlog.Entry, bool) {
	block = strings.TrimSpace(block)
	if block == "" || !strings.HasPrefix(block, "[") {
		return convlog.Entry{}, false
	}

	lines := strings.Split(block, "\n")
	header := lines[0]

	end := strings.Index(header, "]")
	if end < 0 {
		return convlog.Entry{}, false
	}

	ts, err := time.Parse(timeLayout, header[1:end])
	if err != nil {
		return convlog.Entry{}, false
	}

	entry := convlog.Entry{Timestamp: ts}
	if idx := strings.Index(header, "Task ID:"); idx >= 0 {
		entry.TaskID = strings.TrimSpace(header[idx+len("Task ID:"):])
	}

	section := ""
	var prompt, response []string
	for _, line := range lines[1:] {
		switch strings.TrimSpace(line) {
		case "PROMPT:":
			section = "prompt"
			continue
		case "RESPONSE:":
			section = "response"
			continue
		}
		switch section {
		case "prompt":
			prompt = append(prompt, line)
		case "response":
			response = append(response, line)
		}
	}

	entry.Prompt = strings.TrimSpace(strings.Join(prompt, "\n"))
	entry.Response = strings.TrimSpace(strings.Join(response, "\n"))
	if entry.Prompt == "" && entry.Response == "" {
		return convlog.Entry{}, false
	}

	return entry, true
}

// Report writes a human-readable analysis to w.
func (a *Analyzer) Report(w io.Writer) {
	if len(a.entries) == 0 {
		fmt.Fprintln(w, "No conversations recorded yet.")
		return
	}

	fmt.Fprintln(w, "Conversation Log Analysis")
	fmt.Fprintln(w, "----------------------------------------------------------------------")
	fmt.Fprintf(w, "Total conversations: %d\n", len(a.entries))

	first, last := a.dateSpan()
	if !first.IsZero() {
		fmt.Fprintf(w, "Period: %s - %s\n", first.Format("2006-01-02"), last.Format("2006-01-02"))
	}

	fmt.Fprintf(w, "Average prompt length: %d characters\n", avgLen(a.entries, func(e convlog.Entry) string { return e.Prompt }))
	fmt.Fprintf(w, "Average response length: %d characters\n", avgLen(a.entries, func(e convlog.Entry) string { return e.Response }))

	if hour, count, ok := a.busiestHour(); ok {
		fmt.Fprintf(w, "Busiest hour: %02d:00 (%d conversations)\n", hour, count)
	}

	if word, count, ok := a.topFirstWord(); ok {
		fmt.Fprintf(w, "Most common prompt opener: %q (%d times)\n", word, count)
	}
}

func (a *Analyzer) dateSpan() (time.Time, time.Time) {
	var first, last time.Time
	for _, e := range a.entries {
		if e.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if last.IsZero() || e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	return first, last
}

func (a *Analyzer) busiestHour() (int, int, bool) {
	counts := make(map[int]int)
	for _, e := range a.entries {
		if !e.Timestamp.IsZero() {
			counts[e.Timestamp.Hour()]++
		}
	}

	bestHour, bestCount := 0, 0
	for hour, count := range counts {
		if count > bestCount || (count == bestCount && hour < bestHour) {
			bestHour, bestCount = hour, count
		}
	}
	return bestHour, bestCount, bestCount > 0
}

func (a *Analyzer) topFirstWord() (string, int, bool) {
	counts := make(map[string]int)
	for _, e := range a.entries {
		fields := strings.Fields(strings.ToLower(e.Prompt))
		if len(fields) > 0 {
			counts[fields[0]]++
		}
	}

	bestWord, bestCount := "", 0
	for word, count := range counts {
		if count > bestCount || (count == bestCount && word < bestWord) {
			bestWord, bestCount = word, count
		}
	}
	return bestWord, bestCount, bestCount > 0
}

func avgLen(entries []convlog.Entry, field func(convlog.Entry) string) int {
	total := 0
	for _, e := range entries {
		total += len(field(e))
	}
	return total / len(entries)
}
