// Package main is the entry point for the vibe-reachout CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/vibereach/vibe-reachout/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var exitErr *cmd.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
