// Package sched installs the dispatcher's one-shot entry point as a
// recurring OS job. Four backends cover the host families: launchd
// (macOS), systemd user timers (Linux), crontab (Linux without
// systemd), and the Windows Task Scheduler. Callers hold the
// Scheduler interface and never branch on the variant.
package sched

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// ErrNotInstalled is returned by Start when no artifact exists.
	ErrNotInstalled = errors.New("scheduler not installed")
	// ErrAccessDenied marks an OS registration refused for lack of
	// privileges; the CLI suggests elevation.
	ErrAccessDenied = errors.New("scheduler access denied")
	// ErrUnsupportedOS is fatal: no backend exists for the host.
	ErrUnsupportedOS = errors.New("unsupported operating system")
)

// Scheduler is the capability set shared by all backends.
//
// Install is idempotent: re-running while installed replaces the
// artifact in place. Uninstall on a never-installed job is a no-op
// success. IsInstalled is a pure predicate over artifact existence.
type Scheduler interface {
	Install() error
	Uninstall() error
	IsInstalled() bool
	Start() error
	Stop() error
	Status() Status
	Name() string
}

// Status describes one backend's view of the recurring job. Running is
// nil when the backend cannot distinguish active from idle.
type Status struct {
	Installed bool
	Running   *bool
	Paths     []string
	Detail    string
}

// RunnerFunc executes an OS command, optionally feeding stdin. A
// non-zero exit is reported through code with err nil; err is reserved
// for spawn failures. Injected in tests.
type RunnerFunc func(stdin, name string, args ...string) (stdout, stderr string, code int, err error)

// Options configures a backend. Executable must be the absolute path
// to the cronpilot binary; the generated job always invokes it with
// --once.
type Options struct {
	Executable      string
	ProjectRoot     string
	IntervalSeconds int

	// Test seams. Zero values select the real host facilities.
	home        string
	goos        string
	systemdPath string
	runner      RunnerFunc
}

func (o Options) withDefaults() Options {
	if o.home == "" {
		if home, err := os.UserHomeDir(); err == nil {
			o.home = home
		}
	}
	if o.goos == "" {
		o.goos = runtime.GOOS
	}
	if o.systemdPath == "" {
		o.systemdPath = "/run/systemd/system"
	}
	if o.runner == nil {
		o.runner = runCommand
	}
	return o
}

// logDir returns the directory for scheduled-run output redirection.
func (o Options) logDir() string {
	return filepath.Join(o.ProjectRoot, "logs")
}

// cleanLogDir returns the conversation log directory.
func (o Options) cleanLogDir() string {
	return filepath.Join(o.ProjectRoot, "clean_logs")
}

// New selects the backend for the host: darwin uses launchd, windows
// uses the task registry, linux prefers systemd user timers and falls
// back to crontab when no timer-daemon control socket is present.
func New(opts Options, logger *slog.Logger) (Scheduler, error) {
	opts = opts.withDefaults()

	switch opts.goos {
	case "darwin":
		return newLaunchd(opts, logger), nil
	case "linux":
		if hasSystemd(opts.systemdPath) {
			return newSystemd(opts, logger), nil
		}
		return newCrontab(opts, logger), nil
	case "windows":
		return newSchtasks(opts, logger), nil
	default:
		return nil, ErrUnsupportedOS
	}
}

// hasSystemd reports whether the systemd control directory exists.
func hasSystemd(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// intervalMinutes converts the configured interval to whole minutes
// for minute-granularity scheduling grammars, rounding up so the
// effective period is never shorter than requested.
func intervalMinutes(seconds int) int {
	minutes := (seconds + 59) / 60
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// runCommand is the default RunnerFunc.
func runCommand(stdin, name string, args ...string) (string, string, int, error) {
	cmd := exec.Command(name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return stdout.String(), stderr.String(), -1, err
	}

	return stdout.String(), stderr.String(), 0, nil
}

func boolPtr(b bool) *bool {
	return &b
}
