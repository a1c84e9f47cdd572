package security

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newRedactingLogger(buf *bytes.Buffer, r *Redactor) *slog.Logger {
	inner := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(NewRedactingHandler(inner, r))
}

func TestRedactingHandler_RedactsMessageAndAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := NewRedactor()
	r.AddLiteral("correct-horse")
	logger := newRedactingLogger(&buf, r)

	logger.Info("got token "+sampleJWT, "password", "correct-horse", "tool", "whoami")

	out := buf.String()
	if strings.Contains(out, sampleJWT) {
		t.Errorf("expected jwt redacted from message, got %s", out)
	}
	if strings.Contains(out, "correct-horse") {
		t.Errorf("expected password redacted, got %s", out)
	}
	if !strings.Contains(out, "tool=whoami") {
		t.Errorf("expected safe attribute kept, got %s", out)
	}
}

func TestRedactingHandler_WithAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newRedactingLogger(&buf, NewRedactor()).
		With("auth", "Bearer "+sampleJWT).
		WithGroup("req")

	logger.Info("request", slog.Group("hdr", slog.String("authorization", "Bearer xyz123")))

	out := buf.String()
	if strings.Contains(out, sampleJWT) || strings.Contains(out, "xyz123") {
		t.Errorf("expected tokens redacted, got %s", out)
	}
	if !strings.Contains(out, "req.hdr.authorization") {
		t.Errorf("expected grouped key, got %s", out)
	}
}

func TestRedactingHandler_RedactsErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newRedactingLogger(&buf, NewRedactor())

	logger.Error("call failed", "error", errors.New("rejected Bearer abcdef"))

	out := buf.String()
	if strings.Contains(out, "abcdef") {
		t.Errorf("expected error text redacted, got %s", out)
	}
}

func TestRedactingHandler_RespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(NewRedactingHandler(inner, NewRedactor()))

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info suppressed, got %s", buf.String())
	}
}
