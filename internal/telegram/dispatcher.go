package telegram

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vibereach/vibe-reachout/internal/audit"
	"github.com/vibereach/vibe-reachout/internal/clog"
	"github.com/vibereach/vibe-reachout/internal/pending"
	"github.com/vibereach/vibe-reachout/internal/protocol"
)

// Status suffixes appended to the original message on resolution.
const (
	StatusApproved      = "✅ Approved"
	StatusDenied        = "❌ Denied"
	StatusAlwaysAllowed = "\U0001f513 Always Allowed"
	StatusReplied       = "\U0001f4ac Replied"
	StatusTimedOut      = "⏱️ Timed out"
)

// ErrNoChatsReached is returned when the fan-out could not deliver the
// request to any authorized chat.
var ErrNoChatsReached = errors.New("failed to reach any authorized chat")

// Dispatcher fans permission requests out to the authorized chats and
// edits the delivered messages once a request resolves.
type Dispatcher struct {
	m       Messenger
	reg     *pending.Registry
	replies *pending.ReplyState
	chatIDs []int64
	audit   *audit.Logger
}

// NewDispatcher creates a dispatcher over the given messenger and
// shared state. chatIDs is the configured allow-list, in order.
func NewDispatcher(m Messenger, reg *pending.Registry, replies *pending.ReplyState, chatIDs []int64, auditLog *audit.Logger) *Dispatcher {
	return &Dispatcher{m: m, reg: reg, replies: replies, chatIDs: chatIDs, audit: auditLog}
}

// Dispatch formats the request, sends it to every authorized chat, and
// registers the pending request with the delivered message handles.
// Partial send failures are logged and tolerated; if no chat could be
// reached, ErrNoChatsReached is returned and nothing is registered.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.IpcRequest) (pending.Resolver, error) {
	text := FormatPermissionMessage(req)
	keyboard, err := BuildKeyboard(req.RequestID, len(req.PermissionSuggestions) > 0)
	if err != nil {
		return nil, err
	}

	var sent []pending.SentMessage
	for _, chatID := range d.chatIDs {
		if ctx.Err() != nil {
			break
		}
		msgID, err := d.m.Send(chatID, text, &SendOptions{Keyboard: keyboard})
		if err != nil {
			clog.Warn("failed to send permission message to chat %d: %v", chatID, err)
			continue
		}
		sent = append(sent, pending.SentMessage{ChatID: chatID, MessageID: msgID})
	}

	if len(sent) == 0 {
		return nil, ErrNoChatsReached
	}

	resolver, err := d.reg.Register(req.RequestID, text, req.PermissionSuggestions)
	if err != nil {
		return nil, err
	}
	d.reg.AttachSentMessages(req.RequestID, sent)

	_ = d.audit.LogRequest(req.RequestID.String(), req.ToolName, req.SessionID)
	clog.Info("permission request %s dispatched to %d chat(s)", req.RequestID, len(sent))

	return resolver, nil
}

// Finalize edits every delivered message to show the terminal status
// and drops its inline keyboard. Edit failures are logged and do not
// affect the resolution already delivered to the hook.
func (d *Dispatcher) Finalize(res *pending.Resolution, statusSuffix string) {
	if res == nil {
		return
	}
	newText := res.OriginalText + "\n\n" + statusSuffix
	for _, msg := range res.SentMessages {
		if err := d.m.Edit(msg.ChatID, msg.MessageID, newText); err != nil {
			clog.Warn("failed to edit message %d in chat %d: %v", msg.MessageID, msg.ChatID, err)
		}
	}
}

// Expire resolves the request with a Timeout response, finalizes its
// messages, and clears any outstanding reply prompt. Called by the
// socket server when the per-request timer fires.
func (d *Dispatcher) Expire(id uuid.UUID) {
	res := d.reg.Resolve(id, protocol.TimeoutResponse(id))
	if res == nil {
		return
	}
	d.replies.DropRequest(id)
	d.Finalize(res, StatusTimedOut)
	_ = d.audit.LogTimeout(id.String())
	clog.Info("permission request %s timed out", id)
}

// CancelAll drains the registry at shutdown, resolving every pending
// request with Timeout and finalizing its messages.
func (d *Dispatcher) CancelAll() int {
	resolutions := d.reg.CancelAll()
	for i := range resolutions {
		res := &resolutions[i]
		d.replies.DropRequest(res.Response.RequestID)
		d.Finalize(res, StatusTimedOut)
		_ = d.audit.Log(&audit.Event{
			Timestamp: time.Now(),
			Type:      audit.EventShutdown,
			RequestID: res.Response.RequestID.String(),
		})
	}
	return len(resolutions)
}
