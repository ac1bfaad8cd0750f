package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vibereach/vibe-reachout/internal/install"
	"github.com/vibereach/vibe-reachout/internal/term"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Register the permission hook in Claude Code settings",
	Long: `Add vibe-reachout as a PermissionRequest hook in
~/.claude/settings.json. Safe to run repeatedly; an existing entry is
updated in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := install.Run()
		if err != nil {
			return err
		}
		term.Printf("Hook installed at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
