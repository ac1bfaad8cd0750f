package telegram

import (
	"strings"

	"github.com/vibereach/vibe-reachout/internal/audit"
	"github.com/vibereach/vibe-reachout/internal/clog"
	"github.com/vibereach/vibe-reachout/internal/pending"
	"github.com/vibereach/vibe-reachout/internal/protocol"
)

const (
	replyPromptText    = "Type your reply:"
	replyEmptyText     = "Reply cannot be empty. Type your reply:"
	alreadyHandledText = "This request has already been handled"
	unauthorizedText   = "Unauthorized"
)

// Authorizer decides whether a chat may act on permission requests.
type Authorizer interface {
	ChatAllowed(chatID int64) bool
}

// Callback is one inline-button tap, extracted from the transport
// update before it reaches the state machine.
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int
	Data      string
}

// Handler drives the callback/message state machine. It resolves
// pending requests through the registry only; it never calls back into
// the socket server.
type Handler struct {
	m       Messenger
	d       *Dispatcher
	reg     *pending.Registry
	replies *pending.ReplyState
	auth    Authorizer
	audit   *audit.Logger
}

// NewHandler creates a handler over the shared state.
func NewHandler(m Messenger, d *Dispatcher, reg *pending.Registry, replies *pending.ReplyState, auth Authorizer, auditLog *audit.Logger) *Handler {
	return &Handler{m: m, d: d, reg: reg, replies: replies, auth: auth, audit: auditLog}
}

// HandleCallback processes one inline-button tap.
func (h *Handler) HandleCallback(cb Callback) {
	if !h.auth.ChatAllowed(cb.ChatID) {
		clog.Warn("unauthorized callback from chat %d", cb.ChatID)
		h.respond(cb.ID, unauthorizedText, true)
		return
	}

	data, err := ParseCallbackData(cb.Data)
	if err != nil {
		clog.Warn("bad callback data from chat %d: %v", cb.ChatID, err)
		h.respond(cb.ID, "Malformed button data", true)
		return
	}

	if data.Action == ActionReply {
		h.startReply(cb, data)
		return
	}

	resp, status, event := h.buildResponse(data)

	res := h.reg.Resolve(data.RequestID, resp)
	if res == nil {
		// Late tap: the request already resolved or timed out.
		h.respond(cb.ID, alreadyHandledText, true)
		return
	}

	h.respond(cb.ID, "", false)
	h.replies.DropRequest(data.RequestID)
	h.d.Finalize(res, status)
	_ = h.audit.LogDecision(event, data.RequestID.String(), cb.ChatID, resp.Message)
	clog.Info("request %s resolved as %s by chat %d", data.RequestID, resp.Decision, cb.ChatID)
}

// buildResponse maps a non-reply action to its IPC response, status
// suffix, and audit event.
func (h *Handler) buildResponse(data CallbackData) (protocol.IpcResponse, string, audit.EventType) {
	switch data.Action {
	case ActionDeny:
		return protocol.DenyResponse(data.RequestID, "Denied by user via Telegram"), StatusDenied, audit.EventDeny
	case ActionAlways:
		suggestion, _ := h.reg.FirstSuggestion(data.RequestID)
		return protocol.AlwaysAllowResponse(data.RequestID, suggestion), StatusAlwaysAllowed, audit.EventAlwaysAllow
	default:
		return protocol.AllowResponse(data.RequestID), StatusApproved, audit.EventAllow
	}
}

// startReply acknowledges the tap and opens the reply sub-flow: a
// force-reply prompt in the tapping chat. The request stays pending.
func (h *Handler) startReply(cb Callback, data CallbackData) {
	if !h.reg.Contains(data.RequestID) {
		h.respond(cb.ID, alreadyHandledText, true)
		return
	}

	h.respond(cb.ID, "", false)

	promptID, err := h.m.Send(cb.ChatID, replyPromptText, &SendOptions{ForceReply: true})
	if err != nil {
		clog.Warn("failed to send reply prompt to chat %d: %v", cb.ChatID, err)
		return
	}
	h.replies.Set(cb.ChatID, pending.ReplyPrompt{RequestID: data.RequestID, PromptMessageID: promptID})
}

// HandleMessage processes one inbound text message. Only chats with an
// outstanding reply prompt are of interest; everything else is ignored.
func (h *Handler) HandleMessage(chatID int64, text string) {
	if !h.auth.ChatAllowed(chatID) {
		clog.Warn("unauthorized message from chat %d", chatID)
		return
	}

	prompt, ok := h.replies.Get(chatID)
	if !ok {
		return
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		// Re-prompt; the reply state stays in place pointing at the
		// fresh prompt message.
		promptID, err := h.m.Send(chatID, replyEmptyText, &SendOptions{ForceReply: true})
		if err != nil {
			clog.Warn("failed to re-prompt chat %d: %v", chatID, err)
			return
		}
		h.replies.Set(chatID, pending.ReplyPrompt{RequestID: prompt.RequestID, PromptMessageID: promptID})
		return
	}

	h.replies.Take(chatID)

	res := h.reg.Resolve(prompt.RequestID, protocol.ReplyResponse(prompt.RequestID, trimmed))
	if res == nil {
		if _, err := h.m.Send(chatID, alreadyHandledText+".", nil); err != nil {
			clog.Warn("failed to notify chat %d: %v", chatID, err)
		}
		return
	}

	h.replies.DropRequest(prompt.RequestID)
	h.d.Finalize(res, StatusReplied)

	// Best-effort cleanup of the force-reply prompt.
	if err := h.m.Delete(chatID, prompt.PromptMessageID); err != nil {
		clog.Debug("failed to delete reply prompt in chat %d: %v", chatID, err)
	}

	_ = h.audit.LogDecision(audit.EventReply, prompt.RequestID.String(), chatID, trimmed)
	clog.Info("request %s resolved as Reply by chat %d", prompt.RequestID, chatID)
}

func (h *Handler) respond(callbackID, text string, alert bool) {
	if err := h.m.Respond(callbackID, text, alert); err != nil {
		clog.Warn("failed to answer callback %s: %v", callbackID, err)
	}
}
