package metrics

import "time"

// Provider define o contrato para envio de métricas.
// Isso permite trocar Datadog por Prometheus sem alterar o engine.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// MetricType define os tipos suportados.
type MetricType string

const (
	TypeCount     MetricType = "count"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// MetricDefinition armazena os metadados da métrica (nome real, tipo).
type MetricDefinition struct {
	Name string
	Type MetricType
	Help string
}

// Nomes das métricas emitidas pelo servidor.
const (
	MetricRequests       = "mock.requests"
	MetricRequestLatency = "mock.request.latency_ms"
	MetricReloads        = "mock.reloads"
	MetricGeneration     = "mock.ruleset.generation"
	MetricStateEntries   = "mock.state.entries"
	MetricStateSwept     = "mock.state.swept"
)

// Definitions descreve cada métrica conhecida. Providers que exigem registro
// prévio (Prometheus) usam o Help daqui.
var Definitions = map[string]MetricDefinition{
	MetricRequests:       {Name: MetricRequests, Type: TypeCount, Help: "Requisições atendidas pelo mock, por endpoint, regra e status."},
	MetricRequestLatency: {Name: MetricRequestLatency, Type: TypeHistogram, Help: "Latência total da requisição em milissegundos, delay incluso."},
	MetricReloads:        {Name: MetricReloads, Type: TypeCount, Help: "Tentativas de hot reload por resultado."},
	MetricGeneration:     {Name: MetricGeneration, Type: TypeGauge, Help: "Geração do RuleSet publicado."},
	MetricStateEntries:   {Name: MetricStateEntries, Type: TypeGauge, Help: "Entradas no armazenamento de estado por cliente."},
	MetricStateSwept:     {Name: MetricStateSwept, Type: TypeCount, Help: "Entradas de estado expiradas e removidas."},
}

// RequestEvent é o resumo de uma requisição processada.
type RequestEvent struct {
	Method     string
	Endpoint   string // vazio quando nenhuma rota corresponde
	Rule       int    // índice da regra escolhida, -1 quando não houve
	Status     int
	Latency    time.Duration
	Generation uint64
}

// ReloadEvent é o resultado de uma tentativa de reload.
type ReloadEvent struct {
	Success    bool
	Generation uint64
	Endpoints  int
	Err        error
}

// Observer recebe os eventos do engine. É apenas informativo: nada do que
// acontece aqui volta para o estado do engine.
type Observer interface {
	ObserveRequest(ev RequestEvent)
	ObserveReload(ev ReloadEvent)
}
