package email

import (
	"strings"
	"testing"
	"time"

	"appraisal/internal/platform/config"
)

func TestNewReturnsNilWhenDisabled(t *testing.T) {
	if m := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"}); m != nil {
		t.Fatalf("expected nil mailer, got %T", m)
	}
	if m := New(config.Config{EmailEnabled: true, SMTPHost: "smtp.example.com", SMTPPort: 25}); m == nil {
		t.Fatal("expected smtp mailer")
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("hr@example.com", "dev@example.com", "Goal\napproved", "body", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	if !strings.Contains(msg, "Subject: Goal approved\r\n") {
		t.Fatalf("subject not sanitized: %q", msg)
	}
	if !strings.Contains(msg, "Date: Thu, 02 Jan 2025 03:04:05 +0000") {
		t.Fatalf("missing date header: %q", msg)
	}
	if !strings.HasSuffix(msg, "\r\n\r\nbody") {
		t.Fatalf("unexpected body framing: %q", msg)
	}
}
