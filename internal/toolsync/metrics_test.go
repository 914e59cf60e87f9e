package toolsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bobmcallan/vire-tools/internal/tools"
)

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}
	return nil
}

func TestMetrics_OutcomesByStatusAndReason(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	reg := newFakeRegistry()
	reg.seed(dateTimeDescriptor())
	r := NewReconciler(reg, nil, Options{Meter: mp.Meter("test")})

	bad := weatherDescriptor()
	bad.Name = "broken"
	bad.Endpoint = "not-a-url"

	r.Run(context.Background(), []tools.Descriptor{dateTimeDescriptor(), weatherDescriptor(), bad})

	rm := collectMetrics(t, reader)

	outcomes := findMetric(rm, "vire_tools.sync.outcomes")
	require.NotNil(t, outcomes)
	sum, ok := outcomes.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := map[string]int64{}
	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		key := status.AsString()
		if reason, ok := dp.Attributes.Value(attribute.Key("reason")); ok {
			key += "/" + reason.AsString()
		}
		counts[key] += dp.Value
	}
	assert.Equal(t, map[string]int64{
		"unchanged":         1,
		"created":           1,
		"failed/validation": 1,
	}, counts)

	dur := findMetric(rm, "vire_tools.sync.run.duration")
	require.NotNil(t, dur)
	hist, ok := dur.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
