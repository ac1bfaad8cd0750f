package telegram

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vibereach/vibe-reachout/internal/protocol"
)

const (
	maxFieldRunes = 500
	maxTotalRunes = 4000
)

// FormatPermissionMessage renders the Telegram message body for a
// permission request. HTML parse mode; user-controlled fields are
// escaped.
func FormatPermissionMessage(req *protocol.IpcRequest) string {
	projectName := filepath.Base(req.Cwd)
	if projectName == "." || projectName == string(filepath.Separator) || projectName == "" {
		projectName = "unknown"
	}

	sessionShort := req.SessionID
	if len(sessionShort) > 8 {
		sessionShort = sessionShort[:8]
	}

	var contextSection string
	if req.AssistantContext != "" {
		contextSection = "\n\n\U0001f4ac " + escapeHTML(req.AssistantContext)
	}

	message := fmt.Sprintf(
		"<b>\U0001f4cb %s</b>%s\n\n<b>\U0001f527 %s</b>\n%s\n\n\U0001f4c1 %s\n\U0001f194 Session: <code>%s</code>",
		escapeHTML(projectName),
		contextSection,
		escapeHTML(req.ToolName),
		formatToolDetails(req.ToolName, req.ToolInput),
		escapeHTML(req.Cwd),
		escapeHTML(sessionShort),
	)

	return truncate(message, maxTotalRunes)
}

func formatToolDetails(toolName string, toolInput json.RawMessage) string {
	var input map[string]json.RawMessage
	if err := json.Unmarshal(toolInput, &input); err != nil {
		input = nil
	}

	switch toolName {
	case "Bash":
		command := stringField(input, "command", "<no command>")
		return "<pre>" + escapeHTML(truncate(command, maxFieldRunes)) + "</pre>"
	case "Write":
		filePath := stringField(input, "file_path", "<unknown file>")
		contentLen := len(stringField(input, "content", ""))
		return fmt.Sprintf("\U0001f4c4 <code>%s</code> (%s)",
			escapeHTML(filePath), escapeHTML(formatSize(contentLen)))
	case "Edit":
		filePath := stringField(input, "file_path", "<unknown file>")
		oldStr := truncate(stringField(input, "old_string", ""), maxFieldRunes/2)
		newStr := truncate(stringField(input, "new_string", ""), maxFieldRunes/2)
		return fmt.Sprintf("\U0001f4c4 <code>%s</code>\n<pre>- %s\n+ %s</pre>",
			escapeHTML(filePath), escapeHTML(oldStr), escapeHTML(newStr))
	default:
		// Generic: show an indented JSON excerpt.
		var pretty []byte
		var v any
		if err := json.Unmarshal(toolInput, &v); err == nil {
			pretty, _ = json.MarshalIndent(v, "", "  ")
		}
		return "<pre>" + escapeHTML(truncate(string(pretty), maxFieldRunes)) + "</pre>"
	}
}

func stringField(input map[string]json.RawMessage, key, fallback string) string {
	raw, ok := input[key]
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	return s
}

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "... (truncated)"
}

func formatSize(bytes int) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}
