package calculator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/handlers"
	"go-chi-calculator/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracer is the calculator's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("calculator")

// ---------------------------------------------------------------------------
// Handlers: binary operations
// ---------------------------------------------------------------------------

// Add handles POST /calculator/add
func Add(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, engine.OpAdd)
}

// Subtract handles POST /calculator/subtract
func Subtract(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, engine.OpSubtract)
}

// Multiply handles POST /calculator/multiply
func Multiply(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, engine.OpMultiply)
}

// Divide handles POST /calculator/divide. Dividing by zero answers 0, the
// same value the keypad shows, and is counted as a fallback.
func Divide(w http.ResponseWriter, r *http.Request) {
	handleBinaryOp(w, r, engine.OpDivide)
}

// handleBinaryOp applies op to the two operands and answers with both the raw
// result and its display text.
func handleBinaryOp(w http.ResponseWriter, r *http.Request, op engine.Op) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)
	opName := op.Name()

	ctx, span := tracer.Start(ctx, fmt.Sprintf("calculator.%s", opName),
		trace.WithAttributes(
			attribute.String("calculator.operation", opName),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req CalcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := "invalid request body"
		if errors.Is(err, errInvalidOperand) {
			msg = errInvalidOperand.Error()
		}
		observability.RecordError(ctx, span, logger, errorCounter, opName, msg, err, http.StatusBadRequest, w)
		return
	}

	a, b := float64(req.A), float64(req.B)
	if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(b) || math.IsInf(b, 0) {
		observability.RecordError(ctx, span, logger, errorCounter, opName, errInvalidOperand.Error(), fmt.Errorf("a=%g b=%g", a, b), http.StatusBadRequest, w)
		return
	}

	span.SetAttributes(
		attribute.Float64("calculator.operand.a", a),
		attribute.Float64("calculator.operand.b", b),
	)

	start := time.Now()
	result, err := engine.Apply(a, b, op)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0 // ms

	fallback := engine.FallbackKind(err)
	if err != nil && fallback == "" {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "operation failed", err, http.StatusInternalServerError, w)
		return
	}

	attrs := metric.WithAttributes(attribute.String("operation", opName))
	opsCounter.Add(ctx, 1, attrs)
	opsHistogram.Record(ctx, elapsed, attrs)
	if finite(result) != nil {
		resultGauge.Record(ctx, result, attrs)
	}

	display := engine.Format(result)
	if fallback != "" {
		recordFallback(ctx, span, logger, fallback, zap.String("operation", opName))
	}

	span.AddEvent("computation.complete", trace.WithAttributes(
		attribute.String("display", display),
		attribute.Float64("duration_ms", elapsed),
	))
	span.SetAttributes(attribute.String("calculator.display", display))
	span.SetStatus(codes.Ok, "")

	logger.Info("calculator operation completed",
		zap.String("operation", opName),
		zap.Float64("a", a),
		zap.Float64("b", b),
		zap.String("display", display),
		zap.String("request_id", requestID),
		zap.Float64("duration_ms", elapsed),
	)

	handlers.WriteJSON(w, http.StatusOK, CalcResponse{
		Operation: opName,
		A:         a,
		B:         b,
		Result:    finite(result),
		Display:   display,
		Fallback:  fallback,
	})
}

// ---------------------------------------------------------------------------
// Handler: stateless key sequences
// ---------------------------------------------------------------------------

// Evaluate handles POST /calculator/evaluate. It runs a key sequence against
// a fresh calculator, creating a child span for every key press.
func Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerWithTrace(ctx)
	requestID := observability.RequestIDFromContext(ctx)

	ctx, span := tracer.Start(ctx, "calculator.evaluate",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	keys, ok := decodeKeys(ctx, w, r, span, logger, "evaluate")
	if !ok {
		return
	}

	span.SetAttributes(attribute.Int("calculator.keys_count", len(keys)))

	state := engine.NewState()
	steps := make([]engine.Step, 0, len(keys))

	for i, k := range keys {
		_, keySpan := tracer.Start(ctx, "calculator.key",
			trace.WithAttributes(
				attribute.Int("calculator.key.index", i),
				attribute.String("calculator.key", k.String()),
			),
		)

		start := time.Now()
		step, err := state.Step(k)
		elapsed := float64(time.Since(start).Microseconds()) / 1000.0

		if err != nil {
			keySpan.RecordError(err)
			keySpan.SetStatus(codes.Error, err.Error())
			keySpan.End()

			observability.RecordError(ctx, span, logger, errorCounter, "evaluate", err.Error(), err, http.StatusBadRequest, w)
			return
		}

		recordStep(ctx, keySpan, step, elapsed)
		if step.Fallback != "" {
			recordFallback(ctx, keySpan, logger, step.Fallback, zap.Int("step", i))
		}
		keySpan.SetStatus(codes.Ok, "")
		keySpan.End()

		steps = append(steps, step)
	}

	recordDisplay(ctx, state.Display)

	span.SetAttributes(attribute.String("calculator.display", state.Display))
	span.SetStatus(codes.Ok, "")

	logger.Info("key sequence evaluated",
		zap.Int("keys", len(keys)),
		zap.String("display", state.Display),
		zap.String("request_id", requestID),
	)

	handlers.WriteJSON(w, http.StatusOK, EvaluateResponse{
		Keys:  engine.FormatKeys(keys),
		State: newStateResponse(state),
		Steps: steps,
	})
}

// Keypad handles GET /calculator/keypad.
func Keypad(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, KeypadResponse{Rows: engine.Keypad(engine.NewState())})
}

// decodeKeys reads a KeysRequest and parses its key sequence. It writes the
// error response itself and reports whether the caller should continue.
func decodeKeys(ctx context.Context, w http.ResponseWriter, r *http.Request, span trace.Span, logger *zap.Logger, opName string) ([]engine.Key, bool) {
	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "invalid request body", err, http.StatusBadRequest, w)
		return nil, false
	}

	if strings.TrimSpace(req.Keys) == "" {
		observability.RecordError(ctx, span, logger, errorCounter, opName, "no keys provided", errors.New("keys is empty"), http.StatusBadRequest, w)
		return nil, false
	}

	keys, err := engine.ParseKeys(req.Keys)
	if err != nil {
		observability.RecordError(ctx, span, logger, errorCounter, opName, err.Error(), err, http.StatusBadRequest, w)
		return nil, false
	}
	return keys, true
}
