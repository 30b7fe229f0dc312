package sched

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/cronpilot/cronpilot/internal/fsutil"
)

// cronMarker tags the generated crontab entry so it can be located and
// replaced without disturbing unrelated entries. The marker comment
// sits on the line immediately preceding the entry.
const cronMarker = "# cronpilot agent"

// crontabScheduler is the Linux fallback for hosts without systemd.
// The user crontab is read and replaced wholesale; the entry is active
// as soon as it is written.
type crontabScheduler struct {
	opts   Options
	logger *slog.Logger
}

func newCrontab(opts Options, logger *slog.Logger) *crontabScheduler {
	return &crontabScheduler{opts: opts, logger: logger}
}

func (c *crontabScheduler) Name() string { return "crontab" }

// cronExpression yields the minute-granularity schedule, e.g.
// "*/5 * * * *" for a 300-second interval.
func (c *crontabScheduler) cronExpression() string {
	return fmt.Sprintf("*/%d * * * *", intervalMinutes(c.opts.IntervalSeconds))
}

// cronCommand yields the command half of the entry: change to the
// project root, run one poll cycle, append output to the cron log.
func (c *crontabScheduler) cronCommand() string {
	logFile := filepath.Join(c.opts.logDir(), "cron.log")
	return fmt.Sprintf("cd %s && %s --once >> %s 2>&1", c.opts.ProjectRoot, c.opts.Executable, logFile)
}

// entryLine is the complete generated crontab line.
func (c *crontabScheduler) entryLine() string {
	return c.cronExpression() + " " + c.cronCommand()
}

func (c *crontabScheduler) readCrontab() []string {
	stdout, _, code, err := c.opts.runner("", "crontab", "-l")
	if err != nil || code != 0 {
		return nil
	}
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func (c *crontabScheduler) writeCrontab(lines []string) error {
	content := strings.Join(lines, "\n") + "\n"
	_, stderr, code, err := c.opts.runner(content, "crontab", "-")
	if err != nil {
		return fmt.Errorf("failed to run crontab: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("crontab rejected entries: %s", strings.TrimSpace(stderr))
	}
	return nil
}

// stripEntry removes the marker comment and the entry line following
// it, leaving unrelated entries untouched.
func stripEntry(lines []string) []string {
	var kept []string
	skipNext := false
	for _, line := range lines {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.Contains(line, cronMarker) {
			skipNext = true
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func (c *crontabScheduler) Install() error {
	if err := fsutil.EnsureDirs(c.opts.logDir(), c.opts.cleanLogDir()); err != nil {
		return err
	}

	lines := stripEntry(c.readCrontab())
	lines = append(lines, cronMarker, c.entryLine())

	if err := c.writeCrontab(lines); err != nil {
		return fmt.Errorf("failed to install crontab entry: %w", err)
	}

	c.logger.Info("crontab entry installed", "schedule", c.cronExpression())
	return nil
}

func (c *crontabScheduler) Uninstall() error {
	lines := c.readCrontab()
	if !containsMarker(lines) {
		return nil
	}

	if err := c.writeCrontab(stripEntry(lines)); err != nil {
		return fmt.Errorf("failed to remove crontab entry: %w", err)
	}

	c.logger.Info("crontab entry removed")
	return nil
}

func (c *crontabScheduler) IsInstalled() bool {
	return containsMarker(c.readCrontab())
}

// Start verifies the entry exists; crontab entries are active the
// moment they are written, so there is nothing further to activate.
func (c *crontabScheduler) Start() error {
	if !c.IsInstalled() {
		return ErrNotInstalled
	}
	return nil
}

// Stop removes the entry: crontab has no deactivated-but-configured
// state.
func (c *crontabScheduler) Stop() error {
	return c.Uninstall()
}

func (c *crontabScheduler) Status() Status {
	lines := c.readCrontab()
	installed := containsMarker(lines)

	st := Status{
		Installed: installed,
		Running:   boolPtr(installed),
	}

	for i, line := range lines {
		if strings.Contains(line, cronMarker) && i+1 < len(lines) {
			st.Detail = lines[i+1]
			break
		}
	}

	return st
}

func containsMarker(lines []string) bool {
	for _, line := range lines {
		if strings.Contains(line, cronMarker) {
			return true
		}
	}
	return false
}
