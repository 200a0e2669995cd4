package observability

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raywall/fast-mock-server/pkg/metrics"
)

// PrometheusProvider registra os vetores sob demanda. As tags "chave:valor"
// viram labels; o conjunto de chaves de uma métrica é fixado no primeiro uso.
type PrometheusProvider struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusProvider usa registry quando informado; nil cria um registry
// próprio com os coletores de processo e runtime.
func NewPrometheusProvider(registry *prometheus.Registry) *PrometheusProvider {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return &PrometheusProvider{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Handler expõe o registry no formato de scrape.
func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusProvider) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusProvider) Count(name string, value float64, tags []string) error {
	keys, values := splitTags(tags)

	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: promName(name) + "_total",
			Help: help(name),
		}, keys)
		if err := p.register(name, vec); err != nil {
			p.mu.Unlock()
			return err
		}
		p.counters[name] = vec
	}
	p.mu.Unlock()

	c, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return fmt.Errorf("métrica %s: %w", name, err)
	}
	c.Add(value)
	return nil
}

func (p *PrometheusProvider) Gauge(name string, value float64, tags []string) error {
	keys, values := splitTags(tags)

	p.mu.Lock()
	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: promName(name),
			Help: help(name),
		}, keys)
		if err := p.register(name, vec); err != nil {
			p.mu.Unlock()
			return err
		}
		p.gauges[name] = vec
	}
	p.mu.Unlock()

	g, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return fmt.Errorf("métrica %s: %w", name, err)
	}
	g.Set(value)
	return nil
}

func (p *PrometheusProvider) Histogram(name string, value float64, tags []string) error {
	keys, values := splitTags(tags)

	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    promName(name),
			Help:    help(name),
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, keys)
		if err := p.register(name, vec); err != nil {
			p.mu.Unlock()
			return err
		}
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	h, err := vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return fmt.Errorf("métrica %s: %w", name, err)
	}
	h.Observe(value)
	return nil
}

func (p *PrometheusProvider) register(name string, c prometheus.Collector) error {
	if err := p.registry.Register(c); err != nil {
		return fmt.Errorf("falha ao registrar métrica %s: %w", name, err)
	}
	return nil
}

// splitTags ordena por chave para que a ordem das tags não importe.
func splitTags(tags []string) ([]string, []string) {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)

	keys := make([]string, 0, len(sorted))
	values := make([]string, 0, len(sorted))
	for _, tag := range sorted {
		k, v, ok := strings.Cut(tag, ":")
		if !ok {
			k, v = tag, ""
		}
		keys = append(keys, promName(k))
		values = append(values, v)
	}
	return keys, values
}

func promName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}

func help(name string) string {
	if def, ok := metrics.Definitions[name]; ok && def.Help != "" {
		return def.Help
	}
	return name
}
