package sched

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cronpilot/cronpilot/internal/fsutil"
)

const launchdLabel = "com.cronpilot.agent"

// launchdScheduler installs a per-user LaunchAgent. RunAtLoad is set
// so a cycle missed during sleep is caught up on wake; StartInterval
// keeps the native seconds granularity.
type launchdScheduler struct {
	opts   Options
	logger *slog.Logger
}

func newLaunchd(opts Options, logger *slog.Logger) *launchdScheduler {
	return &launchdScheduler{opts: opts, logger: logger}
}

func (l *launchdScheduler) Name() string { return "launchd" }

func (l *launchdScheduler) plistPath() string {
	return filepath.Join(l.opts.home, "Library", "LaunchAgents", launchdLabel+".plist")
}

func (l *launchdScheduler) plistContent() string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN"
  "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>

    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>--once</string>
    </array>

    <key>StartInterval</key>
    <integer>%d</integer>

    <key>RunAtLoad</key>
    <true/>

    <key>StandardOutPath</key>
    <string>%s</string>

    <key>StandardErrorPath</key>
    <string>%s</string>

    <key>WorkingDirectory</key>
    <string>%s</string>

    <key>EnvironmentVariables</key>
    <dict>
        <key>PATH</key>
        <string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
    </dict>
</dict>
</plist>
`,
		launchdLabel,
		l.opts.Executable,
		l.opts.IntervalSeconds,
		filepath.Join(l.opts.logDir(), "stdout.log"),
		filepath.Join(l.opts.logDir(), "stderr.log"),
		l.opts.ProjectRoot,
	)
}

func (l *launchdScheduler) Install() error {
	if err := fsutil.EnsureDirs(l.opts.logDir(), l.opts.cleanLogDir()); err != nil {
		return err
	}

	if err := fsutil.AtomicWrite(l.plistPath(), []byte(l.plistContent()), 0644); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}

	l.logger.Info("launch agent installed", "plist", l.plistPath())
	return nil
}

func (l *launchdScheduler) Uninstall() error {
	if l.isRunning() {
		l.opts.runner("", "launchctl", "unload", l.plistPath())
	}

	if err := os.Remove(l.plistPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist: %w", err)
	}

	l.logger.Info("launch agent removed")
	return nil
}

func (l *launchdScheduler) IsInstalled() bool {
	return fileExists(l.plistPath())
}

func (l *launchdScheduler) Start() error {
	if !l.IsInstalled() {
		return ErrNotInstalled
	}

	// Unload first so a reinstalled plist is picked up; failure here
	// just means it was not loaded.
	l.opts.runner("", "launchctl", "unload", l.plistPath())

	_, stderr, code, err := l.opts.runner("", "launchctl", "load", l.plistPath())
	if err != nil {
		return fmt.Errorf("failed to run launchctl: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("failed to load launch agent: %s", stderr)
	}

	l.logger.Info("launch agent loaded", "interval_s", l.opts.IntervalSeconds)
	return nil
}

// Stop unloads the agent but keeps the plist.
func (l *launchdScheduler) Stop() error {
	_, _, _, err := l.opts.runner("", "launchctl", "unload", l.plistPath())
	if err != nil {
		return fmt.Errorf("failed to run launchctl: %w", err)
	}
	// A non-zero exit just means the agent was not loaded.
	return nil
}

func (l *launchdScheduler) isRunning() bool {
	_, _, code, err := l.opts.runner("", "launchctl", "list", launchdLabel)
	return err == nil && code == 0
}

func (l *launchdScheduler) Status() Status {
	installed := l.IsInstalled()

	st := Status{Installed: installed}
	if !installed {
		return st
	}

	running := l.isRunning()
	st.Running = boolPtr(running)
	st.Paths = []string{l.plistPath()}

	if running {
		if stdout, _, _, err := l.opts.runner("", "launchctl", "list", launchdLabel); err == nil {
			st.Detail = stdout
		}
	}

	return st
}
