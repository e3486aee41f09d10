package observability

import (
	"context"
	"testing"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewResourceCarriesServiceName(t *testing.T) {
	res, err := newResource(context.Background(), "calc-test")
	if err != nil {
		t.Fatalf("building resource: %v", err)
	}

	var got string
	for _, kv := range res.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			got = kv.Value.AsString()
		}
	}
	if got != "calc-test" {
		t.Fatalf("expected service.name %q, got %q", "calc-test", got)
	}
}
