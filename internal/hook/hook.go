// Package hook implements the ephemeral hook process: read one
// permission request from stdin, relay it to the bot over the Unix
// socket, and write the decision to stdout.
//
// The hook must never break the host assistant: every failure collapses
// to exit code 1 so the assistant falls back to its own prompt, and
// nothing but the single JSON decision is ever written to stdout.
package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vibereach/vibe-reachout/internal/clog"
	"github.com/vibereach/vibe-reachout/internal/config"
	"github.com/vibereach/vibe-reachout/internal/ipc"
	"github.com/vibereach/vibe-reachout/internal/protocol"
)

// clientTimeoutSlack is added to the bot-side timeout so the bot's own
// Timeout response normally wins the race and the hook reads a
// well-formed line instead of cutting the connection.
const clientTimeoutSlack = 30 * time.Second

// Run executes the hook lifecycle and returns the process exit code:
// 0 with a decision on stdout, 1 for every fallback.
func Run(cfg *config.Config, stdin io.Reader, stdout io.Writer) int {
	input, err := io.ReadAll(stdin)
	if err != nil {
		clog.Warn("failed to read stdin: %v", err)
		return 1
	}
	if len(input) == 0 {
		clog.Warn("empty stdin, no hook input received")
		return 1
	}

	var hookInput protocol.HookInput
	if err := json.Unmarshal(input, &hookInput); err != nil {
		clog.Warn("failed to parse hook input: %v", err)
		return 1
	}

	req := &protocol.IpcRequest{
		RequestID:             uuid.New(),
		ToolName:              hookInput.ToolName,
		ToolInput:             hookInput.ToolInput,
		Cwd:                   hookInput.Cwd,
		SessionID:             hookInput.SessionID,
		PermissionSuggestions: hookInput.PermissionSuggestions,
		AssistantContext:      ExtractAssistantContext(hookInput.TranscriptPath),
	}

	timeout := time.Duration(cfg.TimeoutSeconds)*time.Second + clientTimeoutSlack
	resp, err := ipc.SendRequest(cfg.EffectiveSocketPath(), req, timeout)
	if err != nil {
		if errors.Is(err, ipc.ErrSocketNotFound) || errors.Is(err, ipc.ErrConnectionRefused) {
			// Expected whenever the bot is down; stay silent.
			return 1
		}
		clog.Warn("IPC request failed: %v", err)
		return 1
	}

	output, ok := MapDecision(resp)
	if !ok {
		// Timeout: no stdout, let the assistant show its own prompt.
		return 1
	}

	data, err := json.Marshal(output)
	if err != nil {
		clog.Warn("failed to serialize decision: %v", err)
		return 1
	}
	if _, err := fmt.Fprintln(stdout, string(data)); err != nil {
		clog.Warn("failed to write decision: %v", err)
		return 1
	}
	return 0
}

// MapDecision converts an IPC response to the hook output. Returns
// ok=false for Timeout, where the hook writes nothing and exits 1.
func MapDecision(resp *protocol.IpcResponse) (protocol.HookOutput, bool) {
	switch resp.Decision {
	case protocol.DecisionAllow:
		return protocol.AllowOutput(), true
	case protocol.DecisionDeny:
		msg := resp.Message
		if msg == "" {
			msg = "Denied via Telegram"
		}
		return protocol.DenyOutput(msg), true
	case protocol.DecisionAlwaysAllow:
		var perms []json.RawMessage
		if resp.AlwaysAllowSuggestion != nil {
			perms = []json.RawMessage{resp.AlwaysAllowSuggestion}
		}
		return protocol.AllowAlwaysOutput(perms), true
	case protocol.DecisionReply:
		msg := resp.UserMessage
		if msg == "" {
			msg = "(no message)"
		}
		return protocol.DenyOutput("User replied: " + msg), true
	default:
		return protocol.HookOutput{}, false
	}
}
