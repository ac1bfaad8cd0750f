package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// FilePath returns the config file location:
// ~/.config/vibe-reachout/config.toml
func FilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vibe-reachout", "config.toml"), nil
}

// DefaultSocketPath returns the platform default socket location.
// XDG_RUNTIME_DIR is preferred (Linux); the /tmp fallback carries the
// uid so multiple users on one host don't collide.
func DefaultSocketPath() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "vibe-reachout.sock")
	}
	return fmt.Sprintf("/tmp/vibe-reachout-%d.sock", os.Getuid())
}
