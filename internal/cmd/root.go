// Package cmd implements the CLI commands for vibe-reachout.
// The bare invocation is hook mode; `bot` runs the daemon; `install`
// registers the hook with the host assistant.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vibereach/vibe-reachout/internal/clog"
	"github.com/vibereach/vibe-reachout/internal/config"
	"github.com/vibereach/vibe-reachout/internal/hook"
	"github.com/vibereach/vibe-reachout/internal/version"
)

// rootCmd is the base command. Without a subcommand it runs in hook
// mode: one permission request in on stdin, one decision out on stdout.
var rootCmd = &cobra.Command{
	Use:   "vibe-reachout",
	Short: "Telegram permission hook for Claude Code",
	Long: `vibe-reachout bridges Claude Code permission prompts to Telegram.

Invoked with no arguments it acts as the permission hook: it reads the
request from stdin, forwards it to the bot daemon over a Unix socket,
and writes the user's decision to stdout. Run 'vibe-reachout bot' for
the daemon and 'vibe-reachout install' to register the hook.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries only the JSON decision; diagnostics at warn
		// and above go to stderr.
		logger := clog.NewLogger()
		logger.SetErrLevel(clog.LevelWarn)
		clog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			clog.Warn("config error: %v", err)
			return NewExitCodeError(1)
		}

		if code := hook.Run(cfg, os.Stdin, os.Stdout); code != 0 {
			return NewExitCodeError(code)
		}
		return nil
	},
}

// Execute runs the root command and returns any error.
func Execute() error {
	return rootCmd.Execute()
}
