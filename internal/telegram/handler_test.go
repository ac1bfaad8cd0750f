package telegram

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vibereach/vibe-reachout/internal/pending"
	"github.com/vibereach/vibe-reachout/internal/protocol"
)

type handlerFixture struct {
	h        *Handler
	d        *Dispatcher
	m        *fakeMessenger
	reg      *pending.Registry
	replies  *pending.ReplyState
	resolver pending.Resolver
	req      *protocol.IpcRequest
}

// newHandlerFixture dispatches one request to chats 1 and 2; chat 99 is
// not authorized.
func newHandlerFixture(t *testing.T, suggestions ...string) *handlerFixture {
	t.Helper()
	m := newFakeMessenger()
	reg := pending.NewRegistry()
	replies := pending.NewReplyState()
	d := NewDispatcher(m, reg, replies, []int64{1, 2}, nil)
	h := NewHandler(m, d, reg, replies, allowAll{1: true, 2: true}, nil)

	req := testRequest(suggestions...)
	resolver, err := d.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	return &handlerFixture{h: h, d: d, m: m, reg: reg, replies: replies, resolver: resolver, req: req}
}

func (f *handlerFixture) tap(t *testing.T, chatID int64, action Action) {
	t.Helper()
	data, err := FormatCallbackData(f.req.RequestID, action)
	if err != nil {
		t.Fatalf("FormatCallbackData() error = %v", err)
	}
	f.h.HandleCallback(Callback{ID: "cb-1", ChatID: chatID, MessageID: 1, Data: data})
}

func (f *handlerFixture) awaitResolution(t *testing.T) protocol.IpcResponse {
	t.Helper()
	select {
	case resp := <-f.resolver:
		return resp
	case <-time.After(time.Second):
		t.Fatal("request never resolved")
		return protocol.IpcResponse{}
	}
}

func TestCallbackAllow(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionAllow)

	resp := f.awaitResolution(t)
	if resp.Decision != protocol.DecisionAllow {
		t.Errorf("Decision = %v, want Allow", resp.Decision)
	}
	if resp.RequestID != f.req.RequestID {
		t.Errorf("RequestID = %v, want %v", resp.RequestID, f.req.RequestID)
	}

	// Both chats' messages edited with the approved suffix.
	if len(f.m.edits) != 2 {
		t.Fatalf("got %d edits, want 2", len(f.m.edits))
	}
	for _, e := range f.m.edits {
		if !strings.HasSuffix(e.Text, StatusApproved) {
			t.Errorf("edit %q missing approved suffix", e.Text)
		}
	}
}

func TestCallbackDeny(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 2, ActionDeny)

	resp := f.awaitResolution(t)
	if resp.Decision != protocol.DecisionDeny {
		t.Errorf("Decision = %v, want Deny", resp.Decision)
	}
	if resp.Message != "Denied by user via Telegram" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestCallbackAlwaysAllow(t *testing.T) {
	sugg := `{"type":"toolAlwaysAllow","tool":"Bash"}`
	f := newHandlerFixture(t, sugg)
	f.tap(t, 1, ActionAlways)

	resp := f.awaitResolution(t)
	if resp.Decision != protocol.DecisionAlwaysAllow {
		t.Errorf("Decision = %v, want AlwaysAllow", resp.Decision)
	}
	if string(resp.AlwaysAllowSuggestion) != sugg {
		t.Errorf("AlwaysAllowSuggestion = %s, want %s", resp.AlwaysAllowSuggestion, sugg)
	}
}

func TestCallbackAlwaysWithoutSuggestion(t *testing.T) {
	// Defensive path: an "always" callback for a request with no
	// suggestions still resolves, with a nil suggestion.
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionAlways)

	resp := f.awaitResolution(t)
	if resp.Decision != protocol.DecisionAlwaysAllow {
		t.Errorf("Decision = %v, want AlwaysAllow", resp.Decision)
	}
	if resp.AlwaysAllowSuggestion != nil {
		t.Errorf("AlwaysAllowSuggestion = %s, want nil", resp.AlwaysAllowSuggestion)
	}
}

func TestCallbackUnauthorizedChat(t *testing.T) {
	f := newHandlerFixture(t)
	regBefore := f.reg.Len()

	f.tap(t, 99, ActionAllow)

	r, ok := f.m.lastResponse()
	if !ok || r.Text != unauthorizedText || !r.ShowAlert {
		t.Errorf("lastResponse = %+v, want Unauthorized alert", r)
	}
	if f.reg.Len() != regBefore {
		t.Error("registry mutated by unauthorized callback")
	}
	if f.replies.Len() != 0 {
		t.Error("reply state mutated by unauthorized callback")
	}

	// An authorized chat can still resolve normally afterwards.
	f.tap(t, 1, ActionAllow)
	if resp := f.awaitResolution(t); resp.Decision != protocol.DecisionAllow {
		t.Errorf("Decision = %v, want Allow", resp.Decision)
	}
}

func TestCallbackMalformedData(t *testing.T) {
	f := newHandlerFixture(t)
	f.h.HandleCallback(Callback{ID: "cb-x", ChatID: 1, MessageID: 1, Data: "garbage"})

	r, ok := f.m.lastResponse()
	if !ok || !r.ShowAlert {
		t.Errorf("lastResponse = %+v, want error alert", r)
	}
	if !f.reg.Contains(f.req.RequestID) {
		t.Error("request should remain pending after malformed callback")
	}
}

func TestLateTapAnswersAlreadyHandled(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionAllow)
	f.awaitResolution(t)
	editsAfterResolve := len(f.m.edits)

	f.tap(t, 2, ActionDeny)

	r, _ := f.m.lastResponse()
	if r.Text != alreadyHandledText || !r.ShowAlert {
		t.Errorf("lastResponse = %+v, want already-handled alert", r)
	}
	if len(f.m.edits) != editsAfterResolve {
		t.Error("late tap must not edit messages")
	}
}

func TestReplyFlow(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionReply)

	// The request is still pending and a force-reply prompt was sent.
	if !f.reg.Contains(f.req.RequestID) {
		t.Fatal("reply tap must not resolve the request")
	}
	prompts := f.m.sentTo(1)
	last := prompts[len(prompts)-1]
	if last.Text != replyPromptText || !last.ForceReply {
		t.Fatalf("prompt = %+v, want force-reply %q", last, replyPromptText)
	}
	if _, ok := f.replies.Get(1); !ok {
		t.Fatal("reply state not recorded")
	}

	f.h.HandleMessage(1, "use port 8081")

	resp := f.awaitResolution(t)
	if resp.Decision != protocol.DecisionReply {
		t.Errorf("Decision = %v, want Reply", resp.Decision)
	}
	if resp.UserMessage != "use port 8081" {
		t.Errorf("UserMessage = %q", resp.UserMessage)
	}
	if _, ok := f.replies.Get(1); ok {
		t.Error("reply state should be cleared after resolution")
	}
	// The prompt message was deleted best-effort.
	if len(f.m.deletes) != 1 || f.m.deletes[0].MessageID != last.MessageID {
		t.Errorf("deletes = %+v, want prompt %d deleted", f.m.deletes, last.MessageID)
	}
	// All fanned-out messages edited with the replied suffix.
	for _, e := range f.m.edits {
		if !strings.HasSuffix(e.Text, StatusReplied) {
			t.Errorf("edit %q missing replied suffix", e.Text)
		}
	}
}

func TestReplyEmptyTextReprompts(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionReply)

	for range 3 {
		f.h.HandleMessage(1, "   ")
	}

	if !f.reg.Contains(f.req.RequestID) {
		t.Error("request must stay pending across empty replies")
	}
	prompt, ok := f.replies.Get(1)
	if !ok {
		t.Fatal("reply state should survive empty replies")
	}
	if prompt.RequestID != f.req.RequestID {
		t.Errorf("reply state points at %v, want %v", prompt.RequestID, f.req.RequestID)
	}

	// One initial prompt plus three re-prompts.
	var promptCount int
	for _, s := range f.m.sentTo(1) {
		if s.ForceReply {
			promptCount++
		}
	}
	if promptCount != 4 {
		t.Errorf("got %d prompts, want 4", promptCount)
	}
}

func TestReplyTapOnResolvedRequest(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionAllow)
	f.awaitResolution(t)

	f.tap(t, 2, ActionReply)

	r, _ := f.m.lastResponse()
	if r.Text != alreadyHandledText || !r.ShowAlert {
		t.Errorf("lastResponse = %+v, want already-handled alert", r)
	}
	if f.replies.Len() != 0 {
		t.Error("no reply state should be created for a resolved request")
	}
}

func TestMessageFromUnauthorizedChatIgnored(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionReply)

	f.h.HandleMessage(99, "sneaky reply")

	if !f.reg.Contains(f.req.RequestID) {
		t.Error("unauthorized message must not resolve the request")
	}
	if _, ok := f.replies.Get(1); !ok {
		t.Error("unauthorized message must not clear another chat's reply state")
	}
}

func TestMessageWithoutReplyStateIgnored(t *testing.T) {
	f := newHandlerFixture(t)
	sendsBefore := len(f.m.sends)

	f.h.HandleMessage(1, "unrelated chatter")

	if !f.reg.Contains(f.req.RequestID) {
		t.Error("unrelated message must not resolve anything")
	}
	if len(f.m.sends) != sendsBefore {
		t.Error("unrelated message should produce no output")
	}
}

func TestMessageForRequestResolvedElsewhere(t *testing.T) {
	f := newHandlerFixture(t)
	f.tap(t, 1, ActionReply)
	// Chat 2 denies while chat 1 is typing.
	f.tap(t, 2, ActionDeny)
	f.awaitResolution(t)

	f.h.HandleMessage(1, "too late")

	// Reply state was dropped when the deny resolved the request, so
	// the late text is ignored entirely.
	if f.replies.Len() != 0 {
		t.Error("reply state should have been dropped on resolution")
	}
}

func TestConcurrentRequestsResolveIndependently(t *testing.T) {
	m := newFakeMessenger()
	reg := pending.NewRegistry()
	replies := pending.NewReplyState()
	d := NewDispatcher(m, reg, replies, []int64{1}, nil)
	h := NewHandler(m, d, reg, replies, allowAll{1: true}, nil)

	const n = 5
	reqs := make([]*protocol.IpcRequest, n)
	resolvers := make([]pending.Resolver, n)
	for i := range n {
		reqs[i] = testRequest()
		resolver, err := d.Dispatch(context.Background(), reqs[i])
		if err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		resolvers[i] = resolver
	}

	// Resolve out of order.
	for _, i := range []int{3, 0, 4, 2, 1} {
		data, _ := FormatCallbackData(reqs[i].RequestID, ActionAllow)
		h.HandleCallback(Callback{ID: "cb", ChatID: 1, MessageID: 1, Data: data})
	}

	for i := range n {
		select {
		case resp := <-resolvers[i]:
			if resp.RequestID != reqs[i].RequestID {
				t.Errorf("resolver %d received response for %v", i, resp.RequestID)
			}
		case <-time.After(time.Second):
			t.Fatalf("request %d never resolved", i)
		}
	}
}

func TestAlwaysSuggestionIsFirstEntry(t *testing.T) {
	first := `{"type":"toolAlwaysAllow","tool":"Bash"}`
	second := `{"type":"other","tool":"Write"}`
	f := newHandlerFixture(t, first, second)
	f.tap(t, 1, ActionAlways)

	resp := f.awaitResolution(t)
	var got map[string]any
	if err := json.Unmarshal(resp.AlwaysAllowSuggestion, &got); err != nil {
		t.Fatalf("suggestion not valid JSON: %v", err)
	}
	if got["tool"] != "Bash" {
		t.Errorf("suggestion = %s, want first entry", resp.AlwaysAllowSuggestion)
	}
}

func TestUnknownRequestIDCallback(t *testing.T) {
	f := newHandlerFixture(t)
	data, _ := FormatCallbackData(uuid.New(), ActionAllow)
	f.h.HandleCallback(Callback{ID: "cb", ChatID: 1, MessageID: 1, Data: data})

	r, _ := f.m.lastResponse()
	if r.Text != alreadyHandledText {
		t.Errorf("lastResponse = %+v, want already-handled alert", r)
	}
	if !f.reg.Contains(f.req.RequestID) {
		t.Error("unrelated request must stay pending")
	}
}
