package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("read output: %v", err)
	}
	return buf.String()
}

func TestInfoWritesJSONLine(t *testing.T) {
	out := captureStdout(t, func() {
		Info("submission.completed", map[string]any{
			"application_id": "app-1",
			"chunks":         2,
			"err":            errors.New("boom"),
		})
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	if payload["msg"] != "submission.completed" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["application_id"] != "app-1" {
		t.Fatalf("unexpected application_id: %v", payload["application_id"])
	}
	if payload["err"] != "boom" {
		t.Fatalf("expected error rendered as string, got %v", payload["err"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("missing ts field")
	}
}

func TestErrorLevel(t *testing.T) {
	out := captureStdout(t, func() {
		Error("http.error", nil)
	})
	if !strings.Contains(out, `"level":"error"`) {
		t.Fatalf("expected error level, got %s", out)
	}
}
