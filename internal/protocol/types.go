// Package protocol defines the wire types shared by the hook and the bot:
// the host assistant's stdin/stdout envelope and the NDJSON IPC frames
// exchanged over the Unix socket.
package protocol

import (
	"encoding/json"

	"github.com/google/uuid"
)

// PermissionRequestEvent is the hook event this tool handles.
const PermissionRequestEvent = "PermissionRequest"

// HookInput is the JSON the host assistant writes to the hook's stdin.
// tool_input and permission_suggestions are opaque pass-throughs.
type HookInput struct {
	SessionID             string            `json:"session_id"`
	TranscriptPath        string            `json:"transcript_path"`
	Cwd                   string            `json:"cwd"`
	PermissionMode        string            `json:"permission_mode"`
	HookEventName         string            `json:"hook_event_name"`
	ToolName              string            `json:"tool_name"`
	ToolInput             json.RawMessage   `json:"tool_input"`
	PermissionSuggestions []json.RawMessage `json:"permission_suggestions"`
}

// HookOutput is the JSON written to the hook's stdout.
type HookOutput struct {
	HookSpecificOutput HookSpecificOutput `json:"hookSpecificOutput"`
}

// HookSpecificOutput wraps the decision under the host assistant's
// envelope key.
type HookSpecificOutput struct {
	HookEventName string       `json:"hookEventName"`
	Decision      HookDecision `json:"decision"`
}

// HookDecision is the decision payload: behavior "allow" or "deny".
// UpdatedPermissions is a pointer so an empty list still serializes as
// [] for always-allow responses without a suggestion.
type HookDecision struct {
	Behavior           string             `json:"behavior"`
	Message            string             `json:"message,omitempty"`
	UpdatedPermissions *[]json.RawMessage `json:"updatedPermissions,omitempty"`
}

// AllowOutput builds an allow decision.
func AllowOutput() HookOutput {
	return HookOutput{
		HookSpecificOutput: HookSpecificOutput{
			HookEventName: PermissionRequestEvent,
			Decision:      HookDecision{Behavior: "allow"},
		},
	}
}

// DenyOutput builds a deny decision with a message.
func DenyOutput(message string) HookOutput {
	return HookOutput{
		HookSpecificOutput: HookSpecificOutput{
			HookEventName: PermissionRequestEvent,
			Decision:      HookDecision{Behavior: "deny", Message: message},
		},
	}
}

// AllowAlwaysOutput builds an allow decision carrying updated
// permissions. A nil slice is emitted as [].
func AllowAlwaysOutput(permissions []json.RawMessage) HookOutput {
	if permissions == nil {
		permissions = []json.RawMessage{}
	}
	return HookOutput{
		HookSpecificOutput: HookSpecificOutput{
			HookEventName: PermissionRequestEvent,
			Decision: HookDecision{
				Behavior:           "allow",
				UpdatedPermissions: &permissions,
			},
		},
	}
}

// IpcRequest is the permission request the hook sends to the bot,
// one NDJSON line per connection.
type IpcRequest struct {
	RequestID             uuid.UUID         `json:"request_id"`
	ToolName              string            `json:"tool_name"`
	ToolInput             json.RawMessage   `json:"tool_input"`
	Cwd                   string            `json:"cwd"`
	SessionID             string            `json:"session_id"`
	PermissionSuggestions []json.RawMessage `json:"permission_suggestions"`
	AssistantContext      string            `json:"assistant_context,omitempty"`
}

// IpcResponse is the decision the bot sends back to the hook.
type IpcResponse struct {
	RequestID             uuid.UUID       `json:"request_id"`
	Decision              Decision        `json:"decision"`
	Message               string          `json:"message,omitempty"`
	UserMessage           string          `json:"user_message,omitempty"`
	AlwaysAllowSuggestion json.RawMessage `json:"always_allow_suggestion,omitempty"`
}

// AllowResponse builds an Allow response for the request.
func AllowResponse(id uuid.UUID) IpcResponse {
	return IpcResponse{RequestID: id, Decision: DecisionAllow}
}

// DenyResponse builds a Deny response with a message.
func DenyResponse(id uuid.UUID, message string) IpcResponse {
	return IpcResponse{RequestID: id, Decision: DecisionDeny, Message: message}
}

// AlwaysAllowResponse builds an AlwaysAllow response carrying the
// first permission suggestion (may be nil).
func AlwaysAllowResponse(id uuid.UUID, suggestion json.RawMessage) IpcResponse {
	return IpcResponse{RequestID: id, Decision: DecisionAlwaysAllow, AlwaysAllowSuggestion: suggestion}
}

// ReplyResponse builds a Reply response with the user's text.
func ReplyResponse(id uuid.UUID, userMessage string) IpcResponse {
	return IpcResponse{RequestID: id, Decision: DecisionReply, UserMessage: userMessage}
}

// TimeoutResponse builds a Timeout response.
func TimeoutResponse(id uuid.UUID) IpcResponse {
	return IpcResponse{RequestID: id, Decision: DecisionTimeout}
}
