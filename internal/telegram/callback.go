package telegram

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vibereach/vibe-reachout/internal/protocol"
)

// Action is the closed set of inline-button actions. It exists only at
// the chat boundary; resolution decisions use protocol.Decision.
type Action string

const (
	ActionAllow  Action = "allow"
	ActionDeny   Action = "deny"
	ActionReply  Action = "reply"
	ActionAlways Action = "always"
)

// maxCallbackDataBytes is Telegram's limit on callback_data payloads.
const maxCallbackDataBytes = 64

// CallbackData is the parsed payload of one inline button tap.
type CallbackData struct {
	RequestID uuid.UUID
	Action    Action
}

// FormatCallbackData encodes "{request_id}:{action}" and enforces the
// platform's 64-byte limit. A UUIDv4 plus any known action is at most
// 43 bytes.
func FormatCallbackData(id uuid.UUID, action Action) (string, error) {
	data := id.String() + ":" + string(action)
	if len(data) > maxCallbackDataBytes {
		return "", fmt.Errorf("callback data %q exceeds %d bytes", data, maxCallbackDataBytes)
	}
	return data, nil
}

// ParseCallbackData decodes "{request_id}:{action}". The id must be in
// canonical form and the action must be one of the four known values.
func ParseCallbackData(data string) (CallbackData, error) {
	idStr, actionStr, found := strings.Cut(data, ":")
	if !found {
		return CallbackData{}, fmt.Errorf("callback data %q has no action separator", data)
	}

	id, err := protocol.ParseRequestID(idStr)
	if err != nil {
		return CallbackData{}, fmt.Errorf("callback data: %w", err)
	}

	action := Action(actionStr)
	switch action {
	case ActionAllow, ActionDeny, ActionReply, ActionAlways:
	default:
		return CallbackData{}, fmt.Errorf("callback data has unknown action %q", actionStr)
	}

	return CallbackData{RequestID: id, Action: action}, nil
}

// BuildKeyboard returns the inline keyboard for a permission request:
// Allow, Deny, Reply, and Always Allow iff a suggestion exists.
func BuildKeyboard(id uuid.UUID, hasSuggestions bool) (*Keyboard, error) {
	type buttonDef struct {
		text   string
		action Action
	}
	defs := []buttonDef{
		{"✅ Allow", ActionAllow},
		{"❌ Deny", ActionDeny},
		{"\U0001f4ac Reply", ActionReply},
	}
	if hasSuggestions {
		defs = append(defs, buttonDef{"\U0001f513 Always Allow", ActionAlways})
	}

	row := make([]Button, 0, len(defs))
	for _, s := range defs {
		data, err := FormatCallbackData(id, s.action)
		if err != nil {
			return nil, err
		}
		row = append(row, Button{Text: s.text, Data: data})
	}
	return &Keyboard{Rows: [][]Button{row}}, nil
}
