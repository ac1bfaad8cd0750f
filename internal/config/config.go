// Package config loads and validates the vibe-reachout configuration.
// The config is read once at startup from ~/.config/vibe-reachout/config.toml
// and treated as immutable afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DefaultTimeoutSeconds is used when timeout_seconds is absent.
const DefaultTimeoutSeconds = 300

// Config holds the validated bot and hook configuration.
type Config struct {
	TelegramBotToken string  `toml:"telegram_bot_token"`
	AllowedChatIDs   []int64 `toml:"allowed_chat_ids"`
	TimeoutSeconds   int     `toml:"timeout_seconds"`
	SocketPath       string  `toml:"socket_path"`

	allowed map[int64]struct{}
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	path, err := FilePath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the config at the given path.
func LoadFromPath(path string) (*Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config at %s: %w", path, err)
	}

	cfg := Config{TimeoutSeconds: DefaultTimeoutSeconds}
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("invalid TOML in %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("telegram_bot_token must not be empty")
	}
	if len(c.AllowedChatIDs) == 0 {
		return fmt.Errorf("allowed_chat_ids must have at least one entry")
	}
	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > 3600 {
		return fmt.Errorf("timeout_seconds must be between 1 and 3600, got %d", c.TimeoutSeconds)
	}
	if c.SocketPath != "" {
		parent := filepath.Dir(c.SocketPath)
		if _, err := os.Stat(parent); err != nil {
			return fmt.Errorf("socket_path parent directory does not exist: %s", parent)
		}
	}

	c.allowed = make(map[int64]struct{}, len(c.AllowedChatIDs))
	for _, id := range c.AllowedChatIDs {
		c.allowed[id] = struct{}{}
	}
	return nil
}

// ChatAllowed reports whether the chat id is in the allow-list.
func (c *Config) ChatAllowed(chatID int64) bool {
	_, ok := c.allowed[chatID]
	return ok
}

// EffectiveSocketPath returns the configured socket path, or the
// platform default when none is set.
func (c *Config) EffectiveSocketPath() string {
	if c.SocketPath != "" {
		return c.SocketPath
	}
	return DefaultSocketPath()
}
