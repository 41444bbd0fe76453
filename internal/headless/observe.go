package headless

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Johndevils/Arsynox-streaming/internal/telemetry"
)

const instrumentationName = "arsynox.headless"

// Span attribute keys set on the probe span.
const (
	AttrOutcome = "arsynox.probe.outcome"
	AttrReason  = "arsynox.probe.reason"
)

func startProbeSpan(ctx context.Context) (context.Context, trace.Span) {
	return otel.GetTracerProvider().Tracer(instrumentationName).Start(ctx, "headless.probe")
}

// emitProbeObs annotates the span in ctx and counts the verdict. Providers are
// looked up per call so tests can swap the globals.
func emitProbeObs(ctx context.Context, res Result) {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	if total, err := meter.Int64Counter("arsynox_probe_total", metric.WithDescription("Headless probes by outcome")); err == nil {
		total.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", res.Outcome),
			attribute.String("engine", string(res.Engine)),
		))
	}

	span := trace.SpanFromContext(ctx)
	attrs := telemetry.StreamAttributes(res.URL, string(res.Type), string(res.Engine))
	attrs = append(attrs, attribute.String(AttrOutcome, res.Outcome))
	if res.Reason != "" {
		attrs = append(attrs, attribute.String(AttrReason, res.Reason))
	}
	span.SetAttributes(attrs...)
	if res.Outcome != OutcomePlaying {
		span.SetStatus(codes.Error, res.Outcome)
	}
}
