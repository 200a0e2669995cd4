package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupMetrics(t *testing.T) {
	t.Run("Disabled returns Noop", func(t *testing.T) {
		m, err := SetupMetrics(config.MetricsConf{})
		require.NoError(t, err)
		assert.IsType(t, &NoopProvider{}, m.Provider)
		assert.Nil(t, m.Handler)
		assert.NoError(t, m.Close())
	})

	t.Run("Enabled returns Datadog", func(t *testing.T) {
		m, err := SetupMetrics(config.MetricsConf{
			Datadog: config.DatadogConf{Enabled: true, Addr: "localhost:8125"},
		})
		require.NoError(t, err)
		assert.IsType(t, &DatadogProvider{}, m.Provider)
		assert.NoError(t, m.Close())
	})

	t.Run("Prometheus exposes handler", func(t *testing.T) {
		m, err := SetupMetrics(config.MetricsConf{
			Prometheus: config.PrometheusConf{Enabled: true, Path: "/metrics"},
		})
		require.NoError(t, err)
		assert.IsType(t, &PrometheusProvider{}, m.Provider)
		assert.NotNil(t, m.Handler)
	})

	t.Run("Both enabled fan out", func(t *testing.T) {
		m, err := SetupMetrics(config.MetricsConf{
			Datadog:    config.DatadogConf{Enabled: true, Addr: "localhost:8125"},
			Prometheus: config.PrometheusConf{Enabled: true},
		})
		require.NoError(t, err)
		assert.IsType(t, metrics.MultiProvider{}, m.Provider)
		assert.NoError(t, m.Close())
	})
}

func scrape(t *testing.T, p *PrometheusProvider) string {
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestPrometheusProvider(t *testing.T) {
	p := NewPrometheusProvider(nil)

	require.NoError(t, p.Count(metrics.MetricRequests, 1, []string{"status:200", "endpoint:retry"}))
	require.NoError(t, p.Count(metrics.MetricRequests, 2, []string{"endpoint:retry", "status:200"}))
	require.NoError(t, p.Gauge(metrics.MetricGeneration, 4, nil))
	require.NoError(t, p.Histogram(metrics.MetricRequestLatency, 120, []string{"endpoint:retry"}))

	body := scrape(t, p)
	assert.Contains(t, body, `mock_requests_total{endpoint="retry",status="200"} 3`)
	assert.Contains(t, body, `mock_ruleset_generation 4`)
	assert.Contains(t, body, `mock_request_latency_ms_count{endpoint="retry"} 1`)
	assert.True(t, strings.Contains(body, "go_goroutines"))

	// conjunto de labels diferente do registrado
	assert.Error(t, p.Count(metrics.MetricRequests, 1, []string{"endpoint:retry"}))
}

func TestSetupTracing_Disabled(t *testing.T) {
	tracer, shutdown, err := SetupTracing(context.Background(), config.TelemetryConf{})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "noop")
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.5).Description(), "TraceIDRatioBased")
}
