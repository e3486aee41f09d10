package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-chi-calculator/internal/handlers"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecordErrorWritesStandardizedErrorResponse(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	span := trace.SpanFromContext(ctx)
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	counter, err := otel.Meter("test").Int64Counter("test.errors.total")
	if err != nil {
		t.Fatalf("creating counter: %v", err)
	}

	w := httptest.NewRecorder()

	RecordError(
		ctx,
		span,
		logger,
		counter,
		"press",
		"invalid request body",
		errors.New("bad json"),
		http.StatusBadRequest,
		w,
	)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}

	if got := body["error"]; got != "invalid request body" {
		t.Fatalf("expected error %q, got %q", "invalid request body", got)
	}

	if _, ok := body["request_id"]; ok {
		t.Fatal("did not expect request_id field in JSON body")
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("expected client errors to log at warn, got %s", entries[0].Level)
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
		t.Fatalf("expected request_id %q, got %#v", "req-1", got)
	}
}

func TestRecordErrorLogsServerErrorsAtErrorLevel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	counter, err := otel.Meter("test").Int64Counter("test.errors.total")
	if err != nil {
		t.Fatalf("creating counter: %v", err)
	}

	ctx := context.Background()
	RecordError(ctx, trace.SpanFromContext(ctx), zap.New(core), counter, "press", "store unavailable",
		errors.New("disk full"), http.StatusInternalServerError, httptest.NewRecorder())

	if got := logs.All()[0].Level; got != zapcore.ErrorLevel {
		t.Fatalf("expected error level, got %s", got)
	}
}

func TestRecordErrorBodyMatchesWriteError(t *testing.T) {
	counter, err := otel.Meter("test").Int64Counter("test.errors.total")
	if err != nil {
		t.Fatalf("creating counter: %v", err)
	}

	ctx := context.Background()
	got := httptest.NewRecorder()
	RecordError(ctx, trace.SpanFromContext(ctx), zap.NewNop(), counter, "get_session", "session not found",
		errors.New("session not found"), http.StatusNotFound, got)

	want := httptest.NewRecorder()
	handlers.WriteError(want, http.StatusNotFound, "session not found")

	if got.Code != want.Code {
		t.Fatalf("expected status %d, got %d", want.Code, got.Code)
	}
	if got.Header().Get("Content-Type") != want.Header().Get("Content-Type") {
		t.Fatalf("expected Content-Type %q, got %q", want.Header().Get("Content-Type"), got.Header().Get("Content-Type"))
	}
	if got.Body.String() != want.Body.String() {
		t.Fatalf("expected body %q, got %q", want.Body.String(), got.Body.String())
	}
}
