package calculator

import (
	"context"

	"go-chi-calculator/internal/engine"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// recordStep counts one key press and tags its span with the resulting
// display. A negative elapsed skips the duration histogram.
func recordStep(ctx context.Context, span trace.Span, step engine.Step, elapsed float64) {
	attrs := metric.WithAttributes(attribute.String("key", step.Key))
	keysCounter.Add(ctx, 1, attrs)
	if elapsed >= 0 {
		keyHistogram.Record(ctx, elapsed, attrs)
	}
	span.SetAttributes(attribute.String("calculator.display", step.Display))
}

// recordFallback counts a silent fallback and logs it at warn level.
func recordFallback(ctx context.Context, span trace.Span, logger *zap.Logger, kind string, fields ...zap.Field) {
	fallbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	span.AddEvent("calculator.fallback", trace.WithAttributes(attribute.String("kind", kind)))

	logger.Warn("calculator fallback", append([]zap.Field{zap.String("kind", kind)}, fields...)...)
}

// recordDisplay feeds the last-result gauge when the display holds a finite number.
func recordDisplay(ctx context.Context, display string) {
	if !engine.IsValidNumber(display) {
		return
	}
	resultGauge.Record(ctx, engine.Parse(display))
}
