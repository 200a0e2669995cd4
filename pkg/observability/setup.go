package observability

import (
	"fmt"
	"net/http"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/metrics"
)

// NoopProvider é um placeholder para quando métricas estão desabilitadas.
type NoopProvider struct{}

func (n *NoopProvider) Count(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Gauge(name string, value float64, tags []string) error     { return nil }
func (n *NoopProvider) Histogram(name string, value float64, tags []string) error { return nil }

// DatadogProvider adapta a lib oficial do Datadog para nossa interface.
type DatadogProvider struct {
	client statsd.ClientInterface
}

func NewDatadogProvider(client statsd.ClientInterface) *DatadogProvider {
	return &DatadogProvider{client: client}
}

func (d *DatadogProvider) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, 1)
}

func (d *DatadogProvider) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *DatadogProvider) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, 1)
}

func (d *DatadogProvider) Close() error {
	return d.client.Close()
}

// Metrics agrupa o provider resultante e, quando habilitado, o handler do
// Prometheus para a rota de scrape.
type Metrics struct {
	Provider metrics.Provider
	Handler  http.Handler
	closers  []func() error
}

// Close encerra os clientes abertos (flush do statsd).
func (m *Metrics) Close() error {
	for _, c := range m.closers {
		if err := c(); err != nil {
			return err
		}
	}
	return nil
}

// SetupMetrics inicializa os provedores habilitados no YAML.
func SetupMetrics(cfg config.MetricsConf) (*Metrics, error) {
	var providers metrics.MultiProvider
	out := &Metrics{}

	if cfg.Datadog.Enabled {
		opts := []statsd.Option{
			statsd.WithNamespace(cfg.Datadog.Namespace),
		}
		client, err := statsd.New(cfg.Datadog.Addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("falha ao conectar no datadog statsd: %w", err)
		}
		dd := NewDatadogProvider(client)
		providers = append(providers, dd)
		out.closers = append(out.closers, dd.Close)
	}

	if cfg.Prometheus.Enabled {
		prom := NewPrometheusProvider(nil)
		providers = append(providers, prom)
		out.Handler = prom.Handler()
	}

	switch len(providers) {
	case 0:
		out.Provider = &NoopProvider{}
	case 1:
		out.Provider = providers[0]
	default:
		out.Provider = providers
	}
	return out, nil
}
