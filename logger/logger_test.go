package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func newBufferLogger(t *testing.T, level string) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := &Config{Level: level, Format: "json"}
	return NewWithWriter(cfg, "pvpauth", &buf), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestInfoWritesFields(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	l.Info("signed in", Fields(FieldProvider, "google", FieldExternalID, "g-123"))

	m := decodeLine(t, buf)
	if m["message"] != "signed in" {
		t.Errorf("message = %v", m["message"])
	}
	if m[FieldProvider] != "google" || m[FieldExternalID] != "g-123" {
		t.Errorf("missing fields: %v", m)
	}
	if m[FieldService] != "pvpauth" {
		t.Errorf("service = %v", m[FieldService])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, buf := newBufferLogger(t, "nonsense")
	l.Info("visible")
	if buf.Len() == 0 {
		t.Error("expected info to be written with fallback level")
	}
}

func TestWithComponentAndError(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	l.WithComponent("keycache").WithError(errors.New("boom")).Warn("refresh failed")

	m := decodeLine(t, buf)
	if m[FieldComponent] != "keycache" {
		t.Errorf("component = %v", m[FieldComponent])
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v", m["error"])
	}
}

func TestWithContext(t *testing.T) {
	l, buf := newBufferLogger(t, "info")
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithUserID(ctx, "user-1")
	l.WithContext(ctx).Info("handled")

	m := decodeLine(t, buf)
	if m[FieldRequestID] != "req-1" || m[FieldUserID] != "user-1" {
		t.Errorf("context fields missing: %v", m)
	}
	if RequestIDFromContext(ctx) != "req-1" {
		t.Errorf("RequestIDFromContext = %q", RequestIDFromContext(ctx))
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "pvpauth", &buf)
	l.Info("hello")
	if !strings.Contains(buf.String(), "[INF]") {
		t.Errorf("expected console level tag, got %q", buf.String())
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "json" || cfg.Output != "stdout" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Level: "debug", Format: "console"}, false},
		{"bad level", Config{Level: "loud", Format: "json"}, true},
		{"bad format", Config{Level: "info", Format: "xml"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields: %v", m)
	}
	if ef := ErrorFields("op", errors.New("x")); ef[FieldError] != "x" {
		t.Errorf("ErrorFields = %v", ef)
	}
	if df := DurationFields("op", 1500*time.Millisecond); df[FieldDuration] != int64(1500) {
		t.Errorf("DurationFields = %v", df)
	}
}

func TestGlobalLogger(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	var buf bytes.Buffer
	SetGlobalLogger(NewWithWriter(&Config{Level: "info", Format: "json"}, "global", &buf))
	WithComponent("api").Info("routed")
	if !strings.Contains(buf.String(), `"component":"api"`) {
		t.Errorf("expected component in global output, got %q", buf.String())
	}
}
