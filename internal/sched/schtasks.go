package sched

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cronpilot/cronpilot/internal/fsutil"
)

const schtasksName = "CronPilot"

// schtasksScheduler registers a task with the Windows Task Scheduler
// via schtasks.exe. The OS task registry itself is the artifact, so
// IsInstalled queries it rather than checking a file.
type schtasksScheduler struct {
	opts   Options
	logger *slog.Logger
}

func newSchtasks(opts Options, logger *slog.Logger) *schtasksScheduler {
	return &schtasksScheduler{opts: opts, logger: logger}
}

func (w *schtasksScheduler) Name() string { return "schtasks" }

func (w *schtasksScheduler) taskCommand() string {
	// Quote the executable path: it may contain spaces.
	return fmt.Sprintf(`"%s" --once`, w.opts.Executable)
}

func (w *schtasksScheduler) Install() error {
	if err := fsutil.EnsureDirs(w.opts.logDir(), w.opts.cleanLogDir()); err != nil {
		return err
	}

	_, stderr, code, err := w.opts.runner("", "schtasks.exe",
		"/Create",
		"/TN", schtasksName,
		"/TR", w.taskCommand(),
		"/SC", "MINUTE",
		"/MO", strconv.Itoa(intervalMinutes(w.opts.IntervalSeconds)),
		"/F",
	)
	if err != nil {
		return fmt.Errorf("failed to run schtasks: %w", err)
	}
	if code != 0 {
		if strings.Contains(strings.ToLower(stderr), "access is denied") {
			return fmt.Errorf("%w: run from an elevated prompt: %s", ErrAccessDenied, strings.TrimSpace(stderr))
		}
		return fmt.Errorf("failed to create scheduled task: %s", strings.TrimSpace(stderr))
	}

	w.logger.Info("scheduled task created", "task", schtasksName, "interval_min", intervalMinutes(w.opts.IntervalSeconds))
	return nil
}

func (w *schtasksScheduler) Uninstall() error {
	if !w.IsInstalled() {
		return nil
	}

	_, stderr, code, err := w.opts.runner("", "schtasks.exe", "/Delete", "/TN", schtasksName, "/F")
	if err != nil {
		return fmt.Errorf("failed to run schtasks: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("failed to delete scheduled task: %s", strings.TrimSpace(stderr))
	}

	w.logger.Info("scheduled task deleted", "task", schtasksName)
	return nil
}

func (w *schtasksScheduler) IsInstalled() bool {
	_, _, code, err := w.opts.runner("", "schtasks.exe", "/Query", "/TN", schtasksName)
	return err == nil && code == 0
}

// Start triggers a manual run; the task is already enabled on
// creation.
func (w *schtasksScheduler) Start() error {
	if !w.IsInstalled() {
		return ErrNotInstalled
	}

	_, stderr, code, err := w.opts.runner("", "schtasks.exe", "/Run", "/TN", schtasksName)
	if err != nil {
		return fmt.Errorf("failed to run schtasks: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("failed to start scheduled task: %s", strings.TrimSpace(stderr))
	}

	return nil
}

// Stop ends the running instance; the task remains scheduled.
func (w *schtasksScheduler) Stop() error {
	_, _, _, err := w.opts.runner("", "schtasks.exe", "/End", "/TN", schtasksName)
	if err != nil {
		return fmt.Errorf("failed to run schtasks: %w", err)
	}
	// A non-zero exit just means the task was not running.
	return nil
}

func (w *schtasksScheduler) Status() Status {
	installed := w.IsInstalled()

	st := Status{Installed: installed}
	if !installed {
		st.Running = boolPtr(false)
		return st
	}

	stdout, _, _, err := w.opts.runner("", "schtasks.exe", "/Query", "/TN", schtasksName, "/V", "/FO", "LIST")
	if err == nil {
		st.Detail = stdout
		switch {
		case strings.Contains(stdout, "Running"):
			st.Running = boolPtr(true)
		case strings.Contains(stdout, "Ready"):
			st.Running = boolPtr(false)
		default:
			// Cannot tell from the query output.
			st.Running = nil
		}
	}

	return st
}
