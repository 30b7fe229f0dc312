// Package cli wires the cobra command tree: polling (one-shot and
// continuous), scheduler management, and the log statistics report.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cronpilot",
	Short: "Polls a task list and dispatches tasks to an AI agent",
	Long: `cronpilot polls a remote task list, forwards each pending task to an
external AI agent for execution, records the exchange in a conversation
log, and reports the result back to the task source.

Running 'cronpilot' without flags starts the continuous loop (manual
use). Scheduled runs use --once, installed via --install so the poll
loop need not stay resident.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to cronpilot.json (default: ./cronpilot.json)")

	rootCmd.Flags().Bool("once", false, "perform exactly one polling cycle and exit")
	rootCmd.Flags().Bool("install", false, "install the OS scheduler job")
	rootCmd.Flags().Bool("uninstall", false, "remove the OS scheduler job")
	rootCmd.Flags().Bool("status", false, "show OS scheduler job status")
	rootCmd.Flags().Int("interval", 0, "polling interval in seconds (overrides configuration)")

	rootCmd.AddCommand(installCmd, uninstallCmd, statusCmd, statsCmd)
}

// runRoot routes the flag-style surface (--install/--uninstall/
// --status/--once) and defaults to the continuous loop.
func runRoot(cmd *cobra.Command, args []string) error {
	install, _ := cmd.Flags().GetBool("install")
	uninstall, _ := cmd.Flags().GetBool("uninstall")
	status, _ := cmd.Flags().GetBool("status")
	once, _ := cmd.Flags().GetBool("once")

	switch {
	case install:
		return runInstall(cmd)
	case uninstall:
		return runUninstall(cmd)
	case status:
		return runStatus(cmd)
	case once:
		return runPoll(cmd, true)
	default:
		return runPoll(cmd, false)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
