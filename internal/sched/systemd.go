package sched

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cronpilot/cronpilot/internal/fsutil"
)

const systemdUnitName = "cronpilot"

// systemdScheduler uses systemd user units: a oneshot service plus a
// timer with Persistent=true so missed windows are caught up. No
// elevated privileges involved.
type systemdScheduler struct {
	opts   Options
	logger *slog.Logger
}

func newSystemd(opts Options, logger *slog.Logger) *systemdScheduler {
	return &systemdScheduler{opts: opts, logger: logger}
}

func (s *systemdScheduler) Name() string { return "systemd" }

func (s *systemdScheduler) unitDir() string {
	return filepath.Join(s.opts.home, ".config", "systemd", "user")
}

func (s *systemdScheduler) servicePath() string {
	return filepath.Join(s.unitDir(), systemdUnitName+".service")
}

func (s *systemdScheduler) timerPath() string {
	return filepath.Join(s.unitDir(), systemdUnitName+".timer")
}

func (s *systemdScheduler) serviceContent() string {
	return fmt.Sprintf(`[Unit]
Description=CronPilot Agent
After=network.target

[Service]
Type=oneshot
ExecStart=%s --once
WorkingDirectory=%s
StandardOutput=append:%s
StandardError=append:%s

[Install]
WantedBy=default.target
`,
		s.opts.Executable,
		s.opts.ProjectRoot,
		filepath.Join(s.opts.logDir(), "stdout.log"),
		filepath.Join(s.opts.logDir(), "stderr.log"),
	)
}

func (s *systemdScheduler) timerContent() string {
	return fmt.Sprintf(`[Unit]
Description=CronPilot Agent Timer
Requires=%s.service

[Timer]
OnBootSec=1min
OnUnitActiveSec=%dmin
Persistent=true

[Install]
WantedBy=timers.target
`,
		systemdUnitName,
		intervalMinutes(s.opts.IntervalSeconds),
	)
}

func (s *systemdScheduler) Install() error {
	if err := fsutil.EnsureDirs(s.opts.logDir(), s.opts.cleanLogDir()); err != nil {
		return err
	}

	if err := fsutil.AtomicWrite(s.servicePath(), []byte(s.serviceContent()), 0644); err != nil {
		return fmt.Errorf("failed to write service unit: %w", err)
	}

	if err := fsutil.AtomicWrite(s.timerPath(), []byte(s.timerContent()), 0644); err != nil {
		return fmt.Errorf("failed to write timer unit: %w", err)
	}

	// Pick up the new units; failure here is not fatal to install.
	if _, stderr, code, err := s.systemctl("daemon-reload"); err != nil || code != 0 {
		s.logger.Warn("daemon-reload failed", "stderr", stderr, "error", err)
	}

	s.logger.Info("systemd units installed", "service", s.servicePath(), "timer", s.timerPath())
	return nil
}

func (s *systemdScheduler) Uninstall() error {
	if s.isRunning() {
		s.systemctl("stop", systemdUnitName+".timer")
	}
	s.systemctl("disable", systemdUnitName+".timer")

	for _, path := range []string{s.servicePath(), s.timerPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	s.systemctl("daemon-reload")
	s.logger.Info("systemd units removed")
	return nil
}

func (s *systemdScheduler) IsInstalled() bool {
	return fileExists(s.servicePath()) && fileExists(s.timerPath())
}

func (s *systemdScheduler) Start() error {
	if !s.IsInstalled() {
		return ErrNotInstalled
	}

	if _, stderr, code, err := s.systemctl("enable", systemdUnitName+".timer"); err != nil || code != 0 {
		return fmt.Errorf("failed to enable timer: %s", firstNonEmpty(strings.TrimSpace(stderr), errString(err)))
	}

	if _, stderr, code, err := s.systemctl("start", systemdUnitName+".timer"); err != nil || code != 0 {
		return fmt.Errorf("failed to start timer: %s", firstNonEmpty(strings.TrimSpace(stderr), errString(err)))
	}

	s.logger.Info("systemd timer started", "interval_min", intervalMinutes(s.opts.IntervalSeconds))
	return nil
}

// Stop deactivates the timer but keeps both unit files.
func (s *systemdScheduler) Stop() error {
	_, _, _, err := s.systemctl("stop", systemdUnitName+".timer")
	if err != nil {
		return fmt.Errorf("failed to stop timer: %w", err)
	}
	return nil
}

func (s *systemdScheduler) isRunning() bool {
	stdout, _, code, err := s.systemctl("is-active", systemdUnitName+".timer")
	return err == nil && code == 0 && strings.TrimSpace(stdout) == "active"
}

func (s *systemdScheduler) Status() Status {
	installed := s.IsInstalled()

	st := Status{Installed: installed}
	if !installed {
		return st
	}

	st.Running = boolPtr(s.isRunning())
	st.Paths = []string{s.servicePath(), s.timerPath()}

	if stdout, _, _, err := s.systemctl("status", systemdUnitName+".timer"); err == nil {
		st.Detail = stdout
	}

	return st
}

func (s *systemdScheduler) systemctl(args ...string) (string, string, int, error) {
	full := append([]string{"--user"}, args...)
	return s.opts.runner("", "systemctl", full...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
