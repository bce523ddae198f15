package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestStartSpanNestsAndLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithLogger(context.Background(), logger)
	ctx = WithRequestID(ctx, "req-1")

	ctx, outer := StartSpan(ctx, "outer")
	_, inner := StartSpan(ctx, "inner")
	inner.Fail(errors.New("boom"))
	inner.End()
	outer.End()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two log lines, got %d: %s", len(lines), buf.String())
	}

	var innerEntry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &innerEntry); err != nil {
		t.Fatalf("decode inner entry: %v", err)
	}
	if innerEntry["msg"] != "span failed" || innerEntry["error"] != "boom" {
		t.Fatalf("unexpected inner entry %v", innerEntry)
	}
	if innerEntry["parent_span_id"] == nil || innerEntry["parent_span_id"] == innerEntry["span_id"] {
		t.Fatalf("expected parent span id on inner entry, got %v", innerEntry)
	}

	var outerEntry map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &outerEntry); err != nil {
		t.Fatalf("decode outer entry: %v", err)
	}
	if outerEntry["msg"] != "span completed" || outerEntry["request_id"] != "req-1" {
		t.Fatalf("unexpected outer entry %v", outerEntry)
	}
	if outerEntry["span_id"] != innerEntry["parent_span_id"] {
		t.Fatalf("inner parent %v does not match outer span %v", innerEntry["parent_span_id"], outerEntry["span_id"])
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}
}
