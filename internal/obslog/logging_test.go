package obslog

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf})

	logger.Info(context.Background(), "calling provider", "api_key", "sk-ant-"+strings.Repeat("abcdefghijklmnop", 6))

	out := buf.String()
	if strings.Contains(out, "abcdefghijklmnop") {
		t.Fatalf("expected secret to be redacted, got: %s", out)
	}
	if !strings.Contains(out, "REDACTED") {
		t.Fatalf("expected [REDACTED] marker in output, got: %s", out)
	}
}

func TestLoggerIncludesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "debug", Format: "json", Output: &buf})

	ctx := WithTraceID(context.Background(), "trace-123")
	ctx = WithHandle(ctx, "user-456")

	logger.Info(ctx, "processing")

	out := buf.String()
	if !strings.Contains(out, "trace-123") {
		t.Fatalf("expected trace_id in output, got: %s", out)
	}
	if !strings.Contains(out, "user-456") {
		t.Fatalf("expected handle in output, got: %s", out)
	}
}

func TestLoggerWithFieldsAttachesStaticLabels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf}).WithFields("component", "dispatcher")

	logger.Info(context.Background(), "started")

	if !strings.Contains(buf.String(), `"component":"dispatcher"`) {
		t.Fatalf("expected component field in output, got: %s", buf.String())
	}
}
