package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cronpilot/cronpilot/internal/agent"
	"github.com/cronpilot/cronpilot/internal/config"
	"github.com/cronpilot/cronpilot/internal/convlog"
	"github.com/cronpilot/cronpilot/internal/dispatch"
	"github.com/cronpilot/cronpilot/internal/tasksource"
)

// loadConfig resolves the --config flag (default ./cronpilot.json),
// loads the file, and applies the --interval override.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultFileName
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if interval, _ := cmd.Flags().GetInt("interval"); interval > 0 {
		cfg.IntervalSeconds = interval
	}

	return cfg, nil
}

// runPoll is the polling entry point for both modes. Configuration
// errors abort here, before any polling starts.
func runPoll(cmd *cobra.Command, once bool) error {
	logger := newLogger()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	source := tasksource.New(cfg.Token, cfg.APIBaseURL, logger)

	// Probe the token up front so credential problems come out as a
	// clear message instead of a failed first cycle.
	probeCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	if err := source.ValidateToken(probeCtx); err != nil {
		switch {
		case errors.Is(err, tasksource.ErrAuth):
			return fmt.Errorf("task source rejected the token; check TODOIST_TOKEN: %w", err)
		case errors.Is(err, tasksource.ErrPermission):
			return fmt.Errorf("token lacks permission to read tasks: %w", err)
		case errors.Is(err, tasksource.ErrGone):
			return fmt.Errorf("task source endpoint is gone; the API base URL may be outdated: %w", err)
		default:
			return fmt.Errorf("task source probe failed: %w", err)
		}
	}

	inv := agent.New(cfg.AgentBin, cfg.Workspace, cfg.Preamble, logger)
	clog := convlog.New(cfg.CleanLogDir)
	d := dispatch.New(source, inv, clog, logger)
	d.SetOutput(out)

	fmt.Fprintf(out, "Conversation log: %s\n", clog.Path())

	if once {
		d.RunOnce(cmd.Context())
		return nil
	}

	fmt.Fprintf(out, "Polling every %d seconds. Press Ctrl+C to stop.\n", cfg.IntervalSeconds)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.RunForever(ctx, time.Duration(cfg.IntervalSeconds)*time.Second)
}
