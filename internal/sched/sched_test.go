package sched

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner records OS command invocations and answers them from a
// caller-supplied function.
type runnerCall struct {
	Stdin string
	Name  string
	Args  []string
}

type fakeRunner struct {
	calls   []runnerCall
	respond func(stdin, name string, args []string) (string, string, int, error)
}

func (f *fakeRunner) run(stdin, name string, args ...string) (string, string, int, error) {
	f.calls = append(f.calls, runnerCall{Stdin: stdin, Name: name, Args: args})
	if f.respond != nil {
		return f.respond(stdin, name, args)
	}
	return "", "", 0, nil
}

func testOptions(t *testing.T, goos string, r *fakeRunner) Options {
	t.Helper()
	root := t.TempDir()
	return Options{
		Executable:      filepath.Join(root, "cronpilot"),
		ProjectRoot:     root,
		IntervalSeconds: 300,
		home:            t.TempDir(),
		goos:            goos,
		systemdPath:     filepath.Join(t.TempDir(), "missing"),
		runner:          r.run,
	}.withDefaults()
}

func TestIntervalMinutesRoundsUp(t *testing.T) {
	tests := []struct {
		seconds int
		want    int
	}{
		{1, 1},
		{30, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{120, 2},
		{300, 5},
		{0, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, intervalMinutes(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFactorySelectsByOS(t *testing.T) {
	r := &fakeRunner{}

	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "launchd"},
		{"windows", "schtasks"},
		{"linux", "crontab"}, // systemdPath points at a missing dir
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			s, err := New(testOptions(t, tt.goos, r), testLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestFactoryPrefersSystemd(t *testing.T) {
	r := &fakeRunner{}
	opts := testOptions(t, "linux", r)

	systemdDir := filepath.Join(t.TempDir(), "systemd")
	require.NoError(t, os.MkdirAll(systemdDir, 0755))
	opts.systemdPath = systemdDir

	s, err := New(opts, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "systemd", s.Name())
}

func TestFactoryUnsupportedOS(t *testing.T) {
	r := &fakeRunner{}
	opts := testOptions(t, "plan9", r)

	_, err := New(opts, testLogger())
	assert.ErrorIs(t, err, ErrUnsupportedOS)
}

func TestInstallCreatesLogDirs(t *testing.T) {
	r := &fakeRunner{}
	opts := testOptions(t, "darwin", r)

	s, err := New(opts, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Install())

	assert.DirExists(t, filepath.Join(opts.ProjectRoot, "logs"))
	assert.DirExists(t, filepath.Join(opts.ProjectRoot, "clean_logs"))
}
