package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceRef is the W3C trace context stored next to a row that another loop
// picks up later, such as an outbox event or a reminder job.
type TraceRef struct {
	Traceparent string
	Tracestate  string
}

// CaptureTrace records the span active in ctx. Both fields are empty when
// tracing is disabled.
func CaptureTrace(ctx context.Context) TraceRef {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceRef{Traceparent: carrier.Get("traceparent"), Tracestate: carrier.Get("tracestate")}
}

func (t TraceRef) Empty() bool { return t.Traceparent == "" && t.Tracestate == "" }

// Resume returns ctx with the stored span as remote parent, so publishing or
// sending joins the trace of the request that queued the row.
func (t TraceRef) Resume(ctx context.Context) context.Context {
	if t.Empty() {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	carrier.Set("traceparent", t.Traceparent)
	if t.Tracestate != "" {
		carrier.Set("tracestate", t.Tracestate)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
