// Package pending tracks permission requests that are awaiting a
// Telegram decision. The registry correlates each socket connection to
// a single-use resolver; ReplyState bridges the two-step reply flow.
package pending

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibereach/vibe-reachout/internal/protocol"
)

// ErrDuplicateID is returned when a request id is registered twice.
var ErrDuplicateID = errors.New("request id already registered")

// SentMessage records one Telegram message delivered for a request.
type SentMessage struct {
	ChatID    int64
	MessageID int
}

// Resolver receives exactly one IpcResponse when the request leaves
// the pending state.
type Resolver <-chan protocol.IpcResponse

// Resolution is what Resolve hands back so the caller can finalize the
// delivered messages.
type Resolution struct {
	SentMessages []SentMessage
	OriginalText string
	Response     protocol.IpcResponse
}

type entry struct {
	ch           chan protocol.IpcResponse
	sentMessages []SentMessage
	originalText string
	suggestions  []json.RawMessage
	createdAt    time.Time
}

// Registry is a concurrent map of request id to pending entry.
// Each entry resolves at most once; later attempts are no-ops.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]*entry)}
}

// Register inserts a new pending request and returns its resolver.
// Fails if the id already exists.
func (r *Registry) Register(id uuid.UUID, originalText string, suggestions []json.RawMessage) (Resolver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; exists {
		return nil, ErrDuplicateID
	}

	e := &entry{
		ch:           make(chan protocol.IpcResponse, 1),
		originalText: originalText,
		suggestions:  suggestions,
		createdAt:    time.Now(),
	}
	r.entries[id] = e
	return e.ch, nil
}

// AttachSentMessages records the Telegram messages actually delivered
// for the request. No-op for unknown ids.
func (r *Registry) AttachSentMessages(id uuid.UUID, msgs []SentMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.sentMessages = msgs
	}
}

// Contains reports whether the request is still pending.
func (r *Registry) Contains(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// FirstSuggestion returns the request's first preserved permission
// suggestion, or nil. Does not mutate the registry.
func (r *Registry) FirstSuggestion(id uuid.UUID) (json.RawMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	if len(e.suggestions) == 0 {
		return nil, true
	}
	return e.suggestions[0], true
}

// Resolve removes the request and delivers the response to its
// resolver. Returns nil for unknown ids, which callers use to detect
// already-handled requests.
func (r *Registry) Resolve(id uuid.UUID, resp protocol.IpcResponse) *Resolution {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	// The channel is buffered and each entry is removed before its
	// first send, so this never blocks and never double-sends.
	e.ch <- resp

	return &Resolution{
		SentMessages: e.sentMessages,
		OriginalText: e.originalText,
		Response:     resp,
	}
}

// CancelAll drains the registry, resolving every entry with a Timeout
// response. Returns the resolutions so callers can finalize messages.
func (r *Registry) CancelAll() []Resolution {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	resolutions := make([]Resolution, 0, len(ids))
	for _, id := range ids {
		if res := r.Resolve(id, protocol.TimeoutResponse(id)); res != nil {
			resolutions = append(resolutions, *res)
		}
	}
	return resolutions
}

// Len returns the number of pending requests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
