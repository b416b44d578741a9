package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(buf, &Config{Level: level, Format: "json"}, "test")
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestLogger_FieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug").WithComponent("lima.client")

	l.Info("call finished", Fields(FieldEndpoint, "getPet", FieldStatus, 200))

	m := decodeLine(t, &buf)
	if m["message"] != "call finished" {
		t.Errorf("message = %v", m["message"])
	}
	if m[FieldComponent] != "lima.client" {
		t.Errorf("component = %v", m[FieldComponent])
	}
	if m[FieldEndpoint] != "getPet" {
		t.Errorf("endpoint = %v", m[FieldEndpoint])
	}
	if m[FieldStatus] != float64(200) {
		t.Errorf("status = %v", m[FieldStatus])
	}
	if m["service"] != "test" {
		t.Errorf("service = %v", m["service"])
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn line missing: %q", buf.String())
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	newJSONLogger(&buf, "info").WithError(errors.New("boom")).Error("failed")

	if m := decodeLine(t, &buf); m[FieldError] != "boom" {
		t.Errorf("error = %v", m[FieldError])
	}
}

func TestLogger_WithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	newJSONLogger(&buf, "info").WithContext(ctx).Info("traced")

	m := decodeLine(t, &buf)
	if m[FieldTraceID] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v", m[FieldTraceID])
	}
	if m[FieldSpanID] != span.SpanContext().SpanID().String() {
		t.Errorf("span_id = %v", m[FieldSpanID])
	}
}

func TestLogger_WithContextWithoutSpan(t *testing.T) {
	l := Nop()
	if l.WithContext(context.Background()) != l {
		t.Error("expected same logger without span")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("Fields = %v", m)
	}
}

func TestMergeHelpers(t *testing.T) {
	m := MergeWithError(nil, errors.New("boom"))
	if m[FieldError] != "boom" {
		t.Errorf("MergeWithError = %v", m)
	}
	m = MergeWithDuration(Fields("status", 200), 1500*time.Millisecond)
	if m[FieldDuration] != int64(1500) || m["status"] != 200 {
		t.Errorf("MergeWithDuration = %v", m)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid level error")
	}
}

func TestGlobalLogger(t *testing.T) {
	orig := GetGlobalLogger()
	defer SetGlobalLogger(orig)

	var buf bytes.Buffer
	SetGlobalLogger(newJSONLogger(&buf, "info"))
	WithComponent("global").Info("hello")

	if m := decodeLine(t, &buf); m[FieldComponent] != "global" {
		t.Errorf("component = %v", m[FieldComponent])
	}
}
