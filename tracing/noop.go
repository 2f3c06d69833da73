package tracing

import (
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
)

// NewNoopTracing returns a Tracing without any exporter attached.
// Intended for tests.
func NewNoopTracing() *Tracing {
	return &Tracing{
		TracerProvider: trace.NewTracerProvider(),
		Propagator:     propagation.NewCompositeTextMapPropagator(),
	}
}
