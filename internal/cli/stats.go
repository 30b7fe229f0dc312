package cli

import (
	"github.com/spf13/cobra"

	"github.com/cronpilot/cronpilot/internal/logstats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Analyze the conversation logs",
	Long:  `Read the recorded conversation logs and print summary statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		a := logstats.New(cfg.CleanLogDir)
		if err := a.Load(); err != nil {
			return err
		}

		a.Report(cmd.OutOrStdout())
		return nil
	},
}
