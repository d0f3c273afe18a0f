package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/claude-bar/claude-bar/internal/hook"
	"github.com/claude-bar/claude-bar/internal/logging"
	"github.com/claude-bar/claude-bar/internal/monitor"
)

func init() {
	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "SessionStart hook: record which transcript belongs to this terminal",
		Long: `Reads the SessionStart hook payload from stdin and writes a claim
binding the session's terminal to its transcript.

Register it in ~/.claude/settings.json:

  "hooks": {
    "SessionStart": [
      {"hooks": [{"type": "command", "command": "claude-bar hook"}]}
    ]
  }`,
		Args: cobra.NoArgs,
		RunE: runHook,
	}
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := initLogging(cfg, false); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Shutdown()

	_, err = hook.Run(cmd.Context(), cmd.InOrStdin(), monitor.NewInspector(cfg), cfg, os.Getppid())
	return err
}
