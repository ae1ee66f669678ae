package sanitize

import (
	"strings"
	"testing"
)

func TestSanitize_Empty(t *testing.T) {
	if got := Sanitize(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestSanitize_JSONWrapperAndTimestamp(t *testing.T) {
	raw := `{"response_content":"Alpha beta gamma.", "timestamp":"2024-01-01T00:00:00Z"}`
	got := Sanitize(raw)
	if got != "Alpha beta gamma." {
		t.Errorf("expected unwrapped body, got %q", got)
	}
}

func TestSanitize_RedactsEmailIPAndToken(t *testing.T) {
	raw := "contact jane@example.com from 10.0.0.1 using sk-" + strings.Repeat("a", 40)
	got := Sanitize(raw)
	if !strings.Contains(got, "[EMAIL_REDACTED]") {
		t.Errorf("expected email redaction, got %q", got)
	}
	if !strings.Contains(got, "[IP_REDACTED]") {
		t.Errorf("expected IP redaction, got %q", got)
	}
	if !strings.Contains(got, "sk-[REDACTED]") {
		t.Errorf("expected token redaction, got %q", got)
	}
}

func TestSanitize_StripsLogSpamAndBracketedTimestamps(t *testing.T) {
	raw := "Processing 'foo.txt'...\n[2024-01-01 10:00:00] some boilerplate\nReal content here."
	got := Sanitize(raw)
	if strings.Contains(got, "Processing") {
		t.Errorf("expected log spam stripped, got %q", got)
	}
	if !strings.Contains(got, "Real content here.") {
		t.Errorf("expected real content preserved, got %q", got)
	}
}

func TestSanitize_StripsMetadataHeaderAndRoleMarkers(t *testing.T) {
	raw := "[Source: chat.json] (Timestamp: 2024-01-01)\n<|user|>Hello<|assistant|>Hi there"
	got := Sanitize(raw)
	if strings.Contains(got, "[Source:") || strings.Contains(got, "<|") {
		t.Errorf("expected header/markers stripped, got %q", got)
	}
}

func TestSanitize_CollapsesExcessNewlines(t *testing.T) {
	raw := "line one\n\n\n\n\nline two"
	got := Sanitize(raw)
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("expected newline runs collapsed, got %q", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	raw := `{"message":"hello  jane@example.com [2024-01-01] Processing 'x'..."}`
	once := Sanitize(raw)
	twice := Sanitize(once)
	if once != twice {
		t.Errorf("sanitize is not idempotent: %q != %q", once, twice)
	}
}

func TestSanitize_NeverGrowsBeyondBound(t *testing.T) {
	raw := strings.Repeat("hello world. ", 1000)
	got := Sanitize(raw)
	if len(got) > len(raw)+64 {
		t.Errorf("sanitized output grew unexpectedly: %d > %d", len(got), len(raw))
	}
}

func TestChunked_MatchesSingleShotOnSmallInput(t *testing.T) {
	raw := "Alpha beta gamma. Delta epsilon."
	if got, want := Chunked(raw), sanitizeOnce(raw); got != want {
		t.Errorf("chunked sanitize diverged from single pass: %q != %q", got, want)
	}
}

func TestChunked_LargeInputProducesProseLines(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200000; i++ {
		b.WriteString("[2024-01-01 00:00:00] Loading...\n")
	}
	b.WriteString("A real prose sentence survives chunked sanitization.\n")
	raw := b.String()
	if len(raw) < largeInputThreshold {
		t.Fatalf("test fixture too small to exercise chunking: %d bytes", len(raw))
	}
	got := Sanitize(raw)
	if !strings.Contains(got, "A real prose sentence survives chunked sanitization.") {
		t.Errorf("expected prose sentence to survive, got sample of %d bytes", len(got))
	}
}
