package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("Receipt created", "receipt_id", "r1")
	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %q", buf.String())
	}

	logger.Warn("Split not ready", "receipt_id", "r1")
	out := buf.String()
	if !strings.Contains(out, "Split not ready") || !strings.Contains(out, "receipt_id=r1") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected no color codes for a buffer, got %q", out)
	}
}
