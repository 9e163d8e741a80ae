package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lab-assistant/internal/config"
	"github.com/sells-group/lab-assistant/internal/pipeline"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "lab-assistant",
	Short:         "AI science lab assistant",
	Long:          "Generates science experiment guides, extracts text from lab report scans and PDFs, and evaluates reports with a hosted chat model.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		mode := "cli"
		if cmd.Name() == "serve" {
			mode = "serve"
		}
		return cfg.Validate(mode)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		msg, _ := pipeline.Describe(err)
		fmt.Fprintln(os.Stderr, "Error:", msg)
		zap.L().Debug("command failed", zap.Error(err))
		os.Exit(1)
	}
}
