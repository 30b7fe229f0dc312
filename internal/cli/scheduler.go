package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cronpilot/cronpilot/internal/sched"
)

// Subcommand forms of the scheduler flags; both spellings work.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the OS scheduler job",
	RunE:  func(cmd *cobra.Command, args []string) error { return runInstall(cmd) },
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the OS scheduler job",
	RunE:  func(cmd *cobra.Command, args []string) error { return runUninstall(cmd) },
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show OS scheduler job status",
	RunE:  func(cmd *cobra.Command, args []string) error { return runStatus(cmd) },
}

// schedulerFor builds the OS backend pointing at this binary's one-shot
// entry point.
func schedulerFor(cmd *cobra.Command) (sched.Scheduler, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	return sched.New(sched.Options{
		Executable:      exe,
		ProjectRoot:     root,
		IntervalSeconds: cfg.IntervalSeconds,
	}, newLogger())
}

func runInstall(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	s, err := schedulerFor(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Installing scheduler (%s)...\n", s.Name())

	if err := s.Install(); err != nil {
		if errors.Is(err, sched.ErrAccessDenied) {
			return fmt.Errorf("installation failed: %w\n\nHint: re-run from an elevated (Administrator) prompt", err)
		}
		return fmt.Errorf("installation failed: %w", err)
	}

	if err := s.Start(); err != nil {
		return fmt.Errorf("installed but failed to start: %w", err)
	}

	fmt.Fprintln(out, "Scheduler installed and started.")
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Make sure the task source token is configured (TODOIST_TOKEN or cronpilot.json)")
	fmt.Fprintln(out, "  2. Check status with: cronpilot --status")
	fmt.Fprintln(out, "  3. Watch logs/ and clean_logs/ for output")
	return nil
}

func runUninstall(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	s, err := schedulerFor(cmd)
	if err != nil {
		return err
	}

	if err := s.Uninstall(); err != nil {
		return fmt.Errorf("uninstall failed: %w", err)
	}

	fmt.Fprintln(out, "Scheduler uninstalled.")
	return nil
}

func runStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	s, err := schedulerFor(cmd)
	if err != nil {
		return err
	}

	st := s.Status()

	fmt.Fprintln(out, "Scheduler Status")
	fmt.Fprintln(out, "--------------------------------------------------")
	fmt.Fprintf(out, "Type:      %s\n", s.Name())
	fmt.Fprintf(out, "Installed: %s\n", yesNo(st.Installed))

	if st.Running != nil {
		fmt.Fprintf(out, "Running:   %s\n", yesNo(*st.Running))
	} else {
		fmt.Fprintln(out, "Running:   unknown")
	}

	for _, path := range st.Paths {
		fmt.Fprintf(out, "Artifact:  %s\n", path)
	}

	if st.Detail != "" {
		fmt.Fprintln(out, "\nDetails:")
		fmt.Fprintln(out, "--------------------------------------------------")
		fmt.Fprintln(out, st.Detail)
	}

	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
