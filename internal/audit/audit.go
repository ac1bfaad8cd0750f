// Package audit provides structured logging for permission decisions.
// Log entries follow a key=value format suitable for parsing and analysis.
package audit

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// EventType represents the lifecycle stage of a permission request.
type EventType string

// Event types for permission request lifecycle.
const (
	EventRequest     EventType = "REQUEST"
	EventAllow       EventType = "ALLOW"
	EventDeny        EventType = "DENY"
	EventAlwaysAllow EventType = "ALWAYS_ALLOW"
	EventReply       EventType = "REPLY"
	EventTimeout     EventType = "TIMEOUT"
	EventShutdown    EventType = "SHUTDOWN"
)

// Event represents one permission audit log entry.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time

	// Type is the event type (REQUEST, ALLOW, etc.)
	Type EventType

	// RequestID is the permission request id.
	RequestID string

	// Tool is the tool name from the request.
	Tool string

	// Session is the originating session id.
	Session string

	// Chat is the Telegram chat that acted (for decision events).
	Chat int64

	// Detail is free-form extra context (deny reason, reply text).
	Detail string
}

// Format returns the log entry as a formatted string.
// Format: 2026-01-15T14:32:05Z PERMISSION ALLOW request=... tool="Bash" chat=123
func (e *Event) Format() string {
	var b strings.Builder

	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(" PERMISSION ")
	b.WriteString(string(e.Type))

	b.WriteString(" request=")
	b.WriteString(e.RequestID)

	if e.Tool != "" {
		b.WriteString(" tool=")
		b.WriteString(quoteValue(e.Tool))
	}
	if e.Session != "" {
		b.WriteString(" session=")
		b.WriteString(quoteValue(e.Session))
	}
	if e.Chat != 0 {
		fmt.Fprintf(&b, " chat=%d", e.Chat)
	}
	if e.Detail != "" {
		b.WriteString(" detail=")
		b.WriteString(quoteValue(e.Detail))
	}

	return b.String()
}

// quoteValue returns a quoted string value.
// Values are always quoted to handle spaces and special chars.
func quoteValue(s string) string {
	return fmt.Sprintf("%q", s)
}

// Logger writes audit events to an io.Writer.
// A nil Logger or nil writer discards events.
type Logger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogger creates a new audit logger that writes to the given writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w}
}

// Log writes an event to the audit log.
func (l *Logger) Log(e *Event) error {
	if l == nil || l.w == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	line := e.Format() + "\n"
	if _, err := l.w.Write([]byte(line)); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// LogRequest logs a REQUEST event.
func (l *Logger) LogRequest(requestID, tool, session string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      EventRequest,
		RequestID: requestID,
		Tool:      tool,
		Session:   session,
	})
}

// LogDecision logs a decision event (ALLOW, DENY, ALWAYS_ALLOW, REPLY).
func (l *Logger) LogDecision(typ EventType, requestID string, chat int64, detail string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      typ,
		RequestID: requestID,
		Chat:      chat,
		Detail:    detail,
	})
}

// LogTimeout logs a TIMEOUT event.
func (l *Logger) LogTimeout(requestID string) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      EventTimeout,
		RequestID: requestID,
	})
}
