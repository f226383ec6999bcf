package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/certlab/mrvalidate/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mrvalidate",
	Short: "Machine-readable test-report validation pipeline",
	Long:  "Validates structured MR certification test reports against a versioned rule set and produces pass/fail verdicts with itemized reasons and standard-clause references.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
