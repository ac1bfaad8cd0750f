package telegram

import (
	"errors"
	"sync"
)

// fakeMessenger records sends, edits, deletes, and callback answers.
// Chats listed in failChats reject sends.
type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	sends     []fakeSend
	edits     []fakeEdit
	deletes   []fakeDelete
	responses []fakeResponse
	failChats map[int64]bool
}

type fakeSend struct {
	ChatID     int64
	MessageID  int
	Text       string
	Keyboard   *Keyboard
	ForceReply bool
}

type fakeEdit struct {
	ChatID    int64
	MessageID int
	Text      string
}

type fakeDelete struct {
	ChatID    int64
	MessageID int
}

type fakeResponse struct {
	CallbackID string
	Text       string
	ShowAlert  bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failChats: make(map[int64]bool)}
}

func (f *fakeMessenger) Send(chatID int64, text string, opts *SendOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChats[chatID] {
		return 0, errors.New("chat unreachable")
	}
	f.nextID++
	s := fakeSend{ChatID: chatID, MessageID: f.nextID, Text: text}
	if opts != nil {
		s.Keyboard = opts.Keyboard
		s.ForceReply = opts.ForceReply
	}
	f.sends = append(f.sends, s)
	return f.nextID, nil
}

func (f *fakeMessenger) Edit(chatID int64, messageID int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failChats[chatID] {
		return errors.New("chat unreachable")
	}
	f.edits = append(f.edits, fakeEdit{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (f *fakeMessenger) Delete(chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, fakeDelete{ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *fakeMessenger) Respond(callbackID, text string, showAlert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{CallbackID: callbackID, Text: text, ShowAlert: showAlert})
	return nil
}

func (f *fakeMessenger) sentTo(chatID int64) []fakeSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeSend
	for _, s := range f.sends {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeMessenger) lastResponse() (fakeResponse, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return fakeResponse{}, false
	}
	return f.responses[len(f.responses)-1], true
}

// allowAll authorizes the given chat ids.
type allowAll map[int64]bool

func (a allowAll) ChatAllowed(chatID int64) bool { return a[chatID] }
