package pending

import (
	"sync"

	"github.com/google/uuid"
)

// ReplyPrompt tracks an outstanding force-reply prompt in one chat.
// PromptMessageID allows deleting the prompt once the reply arrives.
type ReplyPrompt struct {
	RequestID       uuid.UUID
	PromptMessageID int
}

// ReplyState maps chat id to the reply prompt awaiting free-text input.
// An entry lives strictly within its owning request's pending lifetime.
type ReplyState struct {
	mu sync.Mutex
	m  map[int64]ReplyPrompt
}

// NewReplyState creates an empty reply state.
func NewReplyState() *ReplyState {
	return &ReplyState{m: make(map[int64]ReplyPrompt)}
}

// Set records that chatID has a pending reply prompt for the request.
func (s *ReplyState) Set(chatID int64, prompt ReplyPrompt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = prompt
}

// Get returns the prompt for chatID without removing it.
func (s *ReplyState) Get(chatID int64) (ReplyPrompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[chatID]
	return p, ok
}

// Take removes and returns the prompt for chatID.
func (s *ReplyState) Take(chatID int64) (ReplyPrompt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[chatID]
	if ok {
		delete(s.m, chatID)
	}
	return p, ok
}

// DropRequest removes every chat entry that references the request.
// Called when the request resolves, times out, or is cancelled.
func (s *ReplyState) DropRequest(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, p := range s.m {
		if p.RequestID == id {
			delete(s.m, chatID)
		}
	}
}

// Len returns the number of chats awaiting a reply.
func (s *ReplyState) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
