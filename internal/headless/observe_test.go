package headless

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestProbe_EmitsSpanAndCounter(t *testing.T) {
	spans := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans)))
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})

	srv := upstream(t)
	p := newProber(t, loopback(), 5*time.Second)

	res, err := p.Probe(context.Background(), srv.URL+"/movie.mp4")
	require.NoError(t, err)
	require.Equal(t, OutcomePlaying, res.Outcome)
	res, err = p.Probe(context.Background(), srv.URL+"/error.mp4")
	require.NoError(t, err)
	require.Equal(t, OutcomeError, res.Outcome)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "arsynox_probe_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{OutcomePlaying: 1, OutcomeError: 1}, counts)

	var probeSpans []tracetest.SpanStub
	for _, s := range spans.GetSpans() {
		if s.Name == "headless.probe" {
			probeSpans = append(probeSpans, s)
		}
	}
	require.Len(t, probeSpans, 2)

	outcomes := map[string]codes.Code{}
	for _, s := range probeSpans {
		for _, kv := range s.Attributes {
			if kv.Key == AttrOutcome {
				outcomes[kv.Value.AsString()] = s.Status.Code
			}
		}
	}
	assert.Equal(t, map[string]codes.Code{OutcomePlaying: codes.Unset, OutcomeError: codes.Error}, outcomes)
}
