package telemetry

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoWritesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Info("extraction.status", map[string]any{"document_id": "doc-1", "status_transition": "pending->processing"})

	entries := logs.FilterMessage("extraction.status").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["document_id"] != "doc-1" {
		t.Fatalf("unexpected document_id: %v", ctx["document_id"])
	}
	if ctx["status_transition"] != "pending->processing" {
		t.Fatalf("unexpected status_transition: %v", ctx["status_transition"])
	}
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug("dropped", nil)
	Info("dropped", nil)
	Warn("kept", nil)
	Error("kept", nil)

	if got := logs.FilterMessage("kept").Len(); got != 2 {
		t.Fatalf("expected 2 kept entries, got %d", got)
	}
	if got := logs.FilterMessage("dropped").Len(); got != 0 {
		t.Fatalf("expected dropped entries to be filtered, got %d", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}
