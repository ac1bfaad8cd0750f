package hook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0600); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestExtractAssistantContext(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"user","message":{"content":[{"type":"text","text":"hello"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"I will run the tests now."}]}}`,
		`{"type":"tool_use","message":{"content":[]}}`,
	)
	if got := ExtractAssistantContext(path); got != "I will run the tests now." {
		t.Errorf("got %q", got)
	}
}

func TestExtractSkipsNonTextBlocks(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"123"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Final message"}]}}`,
	)
	if got := ExtractAssistantContext(path); got != "Final message" {
		t.Errorf("got %q", got)
	}
}

func TestExtractPicksLastAssistantWithText(t *testing.T) {
	// The trailing assistant entry has no text blocks; the scan keeps
	// walking back to the previous one.
	path := writeTranscript(t,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Earlier words"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"t"}]}}`,
	)
	if got := ExtractAssistantContext(path); got != "Earlier words" {
		t.Errorf("got %q", got)
	}
}

func TestExtractConcatenatesTextBlocks(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Part 1"},{"type":"text","text":"Part 2"}]}}`,
	)
	if got := ExtractAssistantContext(path); got != "Part 1\nPart 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractMissingOrEmptyFile(t *testing.T) {
	if got := ExtractAssistantContext("/nonexistent/transcript.jsonl"); got != "" {
		t.Errorf("missing file: got %q, want empty", got)
	}
	if got := ExtractAssistantContext(""); got != "" {
		t.Errorf("empty path: got %q, want empty", got)
	}
	path := writeTranscript(t, "")
	if got := ExtractAssistantContext(path); got != "" {
		t.Errorf("empty file: got %q, want empty", got)
	}
}

func TestExtractToleratesGarbageLines(t *testing.T) {
	path := writeTranscript(t,
		`not json at all`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"ok"}]}}`,
		`{{{`,
	)
	if got := ExtractAssistantContext(path); got != "ok" {
		t.Errorf("got %q", got)
	}
}

func TestExtractTruncatesLongText(t *testing.T) {
	long := strings.Repeat("x", 600)
	path := writeTranscript(t,
		fmt.Sprintf(`{"type":"assistant","message":{"content":[{"type":"text","text":"%s"}]}}`, long),
	)
	got := ExtractAssistantContext(path)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("missing ellipsis: %q", got)
	}
	if n := len([]rune(got)); n != maxAssistantContextRunes+3 {
		t.Errorf("context is %d runes, want %d", n, maxAssistantContextRunes+3)
	}
}
