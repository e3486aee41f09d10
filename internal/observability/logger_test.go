package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	old := Logger
	t.Cleanup(func() { Logger = old })

	if err := InitLogger("chatty", false); err == nil {
		t.Fatal("expected an error for an unknown level")
	}

	if err := InitLogger("debug", true); err != nil {
		t.Fatalf("init development logger: %v", err)
	}
	if !Logger.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestLoggerWithTraceAddsSpanFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	old := Logger
	Logger = zap.New(core)
	t.Cleanup(func() { Logger = old })

	LoggerWithTrace(context.Background()).Info("no span")

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	LoggerWithTrace(ctx).Info("with span")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if _, ok := entries[0].ContextMap()["trace_id"]; ok {
		t.Fatal("did not expect trace_id without a span")
	}
	if got := entries[1].ContextMap()["trace_id"]; got != sc.TraceID().String() {
		t.Fatalf("expected trace_id %q, got %#v", sc.TraceID().String(), got)
	}
	if got := entries[1].ContextMap()["span_id"]; got != sc.SpanID().String() {
		t.Fatalf("expected span_id %q, got %#v", sc.SpanID().String(), got)
	}
}
