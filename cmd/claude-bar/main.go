package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/claude-bar/claude-bar/internal/config"
	"github.com/claude-bar/claude-bar/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "claude-bar",
	Short: "Track Claude sessions across terminal windows",
	Long: `claude-bar watches every running Claude session, works out which
transcript belongs to which terminal, and reports whether each session is
running, waiting for input, or idle.

Examples:
  claude-bar serve
  claude-bar serve --mock
  claude-bar status --json`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.claude/claude-bar.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the --config file, which must exist when given, or the
// default config file when present.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadOrDefault(config.DefaultPath())
}

func initLogging(cfg *config.Config, stderr bool) error {
	return logging.Init(logging.Config{
		File:   cfg.Log.File,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Stderr: cfg.Log.Stderr || stderr,
	})
}
