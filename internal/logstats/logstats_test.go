package logstats

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cronpilot/cronpilot/internal/convlog"
)

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadParsesRecordsWrittenByConvlog(t *testing.T) {
	dir := t.TempDir()
	l := convlog.New(dir)

	require.NoError(t, l.Append("calculate 6 times 7", "6 * 7 = 42", "task-1"))
	require.NoError(t, l.Append("water the plants", "done", ""))

	a := New(dir)
	require.NoError(t, a.Load())

	entries := a.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "calculate 6 times 7", entries[0].Prompt)
	assert.Equal(t, "6 * 7 = 42", entries[0].Response)
	assert.Equal(t, "task-1", entries[0].TaskID)
	assert.Empty(t, entries[1].TaskID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestLoadSkipsMalformedBlocks(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "conversation_2026-01-05.log", `
======================================================================
[2026-01-05 10:00:00] Task ID: ok

PROMPT:
good block

RESPONSE:
fine

======================================================================
garbage that is not a record
======================================================================
[not-a-timestamp]

PROMPT:
bad header

RESPONSE:
dropped

======================================================================
`)

	a := New(dir)
	require.NoError(t, a.Load())

	entries := a.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "good block", entries[0].Prompt)
}

func TestLoadSpansMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	l := convlog.New(dir)

	require.NoError(t, l.Append("day one", "r", ""))

	writeLog(t, dir, "conversation_2020-06-01.log", `
======================================================================
[2020-06-01 08:30:00]

PROMPT:
old entry

RESPONSE:
archived

======================================================================
`)

	a := New(dir)
	require.NoError(t, a.Load())
	assert.Len(t, a.Entries(), 2)
}

func TestReportContents(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "conversation_2026-01-05.log", `
======================================================================
[2026-01-05 10:00:00]

PROMPT:
send the report

RESPONSE:
sent

======================================================================
[2026-01-05 10:15:00]

PROMPT:
send the invoice

RESPONSE:
done

======================================================================
[2026-01-06 14:00:00]

PROMPT:
backup files

RESPONSE:
backed up

======================================================================
`)

	a := New(dir)
	require.NoError(t, a.Load())

	var buf bytes.Buffer
	a.Report(&buf)

	out := buf.String()
	assert.Contains(t, out, "Total conversations: 3")
	assert.Contains(t, out, "Period: 2026-01-05 - 2026-01-06")
	assert.Contains(t, out, "Busiest hour: 10:00 (2 conversations)")
	assert.Contains(t, out, `Most common prompt opener: "send" (2 times)`)
}

func TestReportEmptyDirectory(t *testing.T) {
	a := New(t.TempDir())
	require.NoError(t, a.Load())

	var buf bytes.Buffer
	a.Report(&buf)
	assert.Contains(t, buf.String(), "No conversations")
}

func TestBusiestHourIgnoresZeroTimestamps(t *testing.T) {
	a := &Analyzer{entries: []convlog.Entry{
		{Prompt: "p", Response: "r"},
		{Prompt: "p", Response: "r", Timestamp: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)},
	}}

	hour, count, ok := a.busiestHour()
	require.True(t, ok)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 1, count)
}
