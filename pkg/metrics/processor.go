package metrics

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
)

// Processor traduz os eventos do engine em métricas no Provider configurado.
type Processor struct {
	provider Provider
	logger   zerolog.Logger
}

// NewProcessor cria um Observer sobre o provider. Falhas de envio são apenas logadas.
func NewProcessor(provider Provider, logger zerolog.Logger) *Processor {
	return &Processor{
		provider: provider,
		logger:   logger.With().Str("component", "metrics").Logger(),
	}
}

func (p *Processor) ObserveRequest(ev RequestEvent) {
	endpoint := ev.Endpoint
	if endpoint == "" {
		endpoint = "none"
	}
	rule := "none"
	if ev.Rule >= 0 {
		rule = strconv.Itoa(ev.Rule)
	}
	tags := []string{
		"endpoint:" + endpoint,
		"method:" + ev.Method,
		"rule:" + rule,
		"status:" + strconv.Itoa(ev.Status),
	}

	p.report(p.provider.Count(MetricRequests, 1, tags))
	p.report(p.provider.Histogram(MetricRequestLatency, float64(ev.Latency.Microseconds())/1000, tags[:2]))
}

func (p *Processor) ObserveReload(ev ReloadEvent) {
	result := "success"
	if !ev.Success {
		result = "rejected"
	}
	p.report(p.provider.Count(MetricReloads, 1, []string{"result:" + result}))
	if ev.Success {
		p.report(p.provider.Gauge(MetricGeneration, float64(ev.Generation), nil))
	}
}

// ObserveState publica o tamanho do armazenamento e quantas entradas o
// janitor removeu na última varredura.
func (p *Processor) ObserveState(entries, swept int) {
	p.report(p.provider.Gauge(MetricStateEntries, float64(entries), nil))
	if swept > 0 {
		p.report(p.provider.Count(MetricStateSwept, float64(swept), nil))
	}
}

func (p *Processor) report(err error) {
	if err != nil {
		p.logger.Warn().Err(err).Msg("Falha ao registrar métrica")
	}
}

// MultiProvider replica cada chamada para vários providers.
type MultiProvider []Provider

func (m MultiProvider) Count(name string, value float64, tags []string) error {
	return m.each(func(p Provider) error { return p.Count(name, value, tags) })
}

func (m MultiProvider) Gauge(name string, value float64, tags []string) error {
	return m.each(func(p Provider) error { return p.Gauge(name, value, tags) })
}

func (m MultiProvider) Histogram(name string, value float64, tags []string) error {
	return m.each(func(p Provider) error { return p.Histogram(name, value, tags) })
}

func (m MultiProvider) each(fn func(Provider) error) error {
	var errs []error
	for i, p := range m {
		if err := fn(p); err != nil {
			errs = append(errs, fmt.Errorf("provider[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// NopObserver descarta os eventos.
type NopObserver struct{}

func (NopObserver) ObserveRequest(RequestEvent) {}
func (NopObserver) ObserveReload(ReloadEvent)   {}
