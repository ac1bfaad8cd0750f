// Package install registers the permission hook in the host
// assistant's settings file (~/.claude/settings.json). The edit is
// idempotent: an existing vibe-reachout entry is updated in place.
package install

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// hookCommand is the command the host assistant invokes per event.
const hookCommand = "vibe-reachout"

// hookTimeoutSeconds is the host-side hook timeout. The hook's own
// client timeout (timeout_seconds + 30 s) stays under it only while
// timeout_seconds is at most 570.
const hookTimeoutSeconds = 600

// Run installs the hook entry and reports the settings path written.
func Run() (string, error) {
	path, err := settingsFilePath()
	if err != nil {
		return "", err
	}
	if err := installAt(path); err != nil {
		return "", err
	}
	return path, nil
}

func installAt(path string) error {
	settings := map[string]json.RawMessage{}

	contents, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(contents, &settings); err != nil {
			return fmt.Errorf("failed to parse settings at %s: %w", path, err)
		}
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	default:
		return fmt.Errorf("failed to read settings at %s: %w", path, err)
	}

	hooks := map[string]json.RawMessage{}
	if raw, ok := settings["hooks"]; ok {
		if err := json.Unmarshal(raw, &hooks); err != nil {
			return fmt.Errorf("failed to parse hooks section: %w", err)
		}
	}

	var matchers []map[string]any
	if raw, ok := hooks["PermissionRequest"]; ok {
		if err := json.Unmarshal(raw, &matchers); err != nil {
			return fmt.Errorf("failed to parse PermissionRequest hooks: %w", err)
		}
	}

	entry := map[string]any{
		"hooks": []any{map[string]any{
			"type":    "command",
			"command": hookCommand,
			"timeout": hookTimeoutSeconds,
		}},
	}

	if idx := findHookEntry(matchers); idx >= 0 {
		matchers[idx] = entry
	} else {
		matchers = append(matchers, entry)
	}

	matchersRaw, err := json.Marshal(matchers)
	if err != nil {
		return fmt.Errorf("failed to encode hooks: %w", err)
	}
	hooks["PermissionRequest"] = matchersRaw

	hooksRaw, err := json.Marshal(hooks)
	if err != nil {
		return fmt.Errorf("failed to encode hooks section: %w", err)
	}
	settings["hooks"] = hooksRaw

	out, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	out = append(out, '\n')

	if err := os.WriteFile(path, out, 0640); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// findHookEntry returns the index of an existing matcher entry whose
// inner hooks invoke this binary, or -1.
func findHookEntry(matchers []map[string]any) int {
	for i, m := range matchers {
		inner, ok := m["hooks"].([]any)
		if !ok {
			continue
		}
		for _, h := range inner {
			hm, ok := h.(map[string]any)
			if !ok {
				continue
			}
			if cmd, _ := hm["command"].(string); cmd == hookCommand {
				return i
			}
		}
	}
	return -1
}

func settingsFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".claude", "settings.json"), nil
}
