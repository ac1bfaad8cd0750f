package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vibereach/vibe-reachout/internal/clog"
	"github.com/vibereach/vibe-reachout/internal/config"
	"github.com/vibereach/vibe-reachout/internal/daemon"
	"github.com/vibereach/vibe-reachout/internal/ipc"
	"github.com/vibereach/vibe-reachout/internal/term"
)

var (
	botLogFile   string
	botAuditFile string
	botDebug     bool
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Start the Telegram bot daemon",
	Long: `Start the long-running bot that owns the Unix socket and the
Telegram connection. Hook invocations connect to it; the user's inline
button taps and replies resolve them.

Only one bot per user can run at a time; a second start against a live
socket exits with a distinct code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := clog.NewLogger()
		if botDebug {
			logger.SetLevel(clog.LevelDebug)
		}
		if botLogFile != "" {
			f, err := clog.OpenLogFile(botLogFile)
			if err != nil {
				return err
			}
			defer f.Close()
			logger.SetFileOutput(f)
		}
		clog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		opts := daemon.Options{}
		if botAuditFile != "" {
			f, err := clog.OpenLogFile(botAuditFile)
			if err != nil {
				return err
			}
			defer f.Close()
			opts.AuditWriter = f
		}

		if err := daemon.Run(cfg, opts); err != nil {
			if errors.Is(err, ipc.ErrAlreadyRunning) {
				term.Error("%v", err)
				return NewExitCodeError(ExitAlreadyRunning)
			}
			return err
		}
		return nil
	},
}

func init() {
	botCmd.Flags().StringVar(&botLogFile, "log-file", "", "append operational logs to this file")
	botCmd.Flags().StringVar(&botAuditFile, "audit-log", "", "append the permission audit trail to this file")
	botCmd.Flags().BoolVar(&botDebug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(botCmd)
}
