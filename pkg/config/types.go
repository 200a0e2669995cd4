package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Valores padrão aplicados por ApplyDefaults.
const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 8080
	DefaultMaxRequestSize = 10 * 1024 * 1024
	DefaultStateTTL       = time.Hour
	DefaultSweepInterval  = time.Minute
	DefaultReloadDebounce = 250 * time.Millisecond
	DefaultShutdown       = 10 * time.Second
	DefaultMetricsPath    = "/metrics"
	DefaultServiceName    = "fast-mock-server"
)

// MockConfig representa a estrutura raiz do arquivo YAML do mock server.
// Apenas Endpoints participa do hot reload; o restante é lido no boot.
type MockConfig struct {
	Server    ServerConf    `yaml:"server"`
	Logging   LoggingConf   `yaml:"logging"`
	Metrics   MetricsConf   `yaml:"metrics"`
	Telemetry TelemetryConf `yaml:"telemetry"`
	Reload    ReloadConf    `yaml:"reload"`
	Endpoints []Endpoint    `yaml:"endpoints" validate:"dive"`
}

// ServerConf contém as configurações de runtime do servidor HTTP.
type ServerConf struct {
	Host               string  `yaml:"host"`
	Port               int     `yaml:"port" validate:"gte=0,lte=65535"`
	MaxRequestSize     int64   `yaml:"max_request_size" validate:"gte=0"`
	StateTTL           string  `yaml:"state_ttl" validate:"omitempty,duration"`
	StateSweepInterval string  `yaml:"state_sweep_interval" validate:"omitempty,duration"`
	RandomSeed         *uint64 `yaml:"random_seed"`
	AdminRoutes        *bool   `yaml:"admin_routes"`
	TrustForwardedFor  bool    `yaml:"trust_forwarded_for"`
	ReadTimeout        string  `yaml:"read_timeout" validate:"omitempty,duration"`
	WriteTimeout       string  `yaml:"write_timeout" validate:"omitempty,duration"`
	ShutdownTimeout    string  `yaml:"shutdown_timeout" validate:"omitempty,duration"`
}

type LoggingConf struct {
	Enabled *bool  `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json console"`
}

// IsEnabled considera logs ligados quando enabled é omitido.
func (l LoggingConf) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

type MetricsConf struct {
	Datadog    DatadogConf    `yaml:"datadog"`
	Prometheus PrometheusConf `yaml:"prometheus"`
}

type DatadogConf struct {
	Enabled   bool   `yaml:"enabled" env:"DD_ENABLED"`
	Addr      string `yaml:"addr" env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace"`
}

type PrometheusConf struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"omitempty,startswith=/"`
}

// TelemetryConf controla a exportação de spans OTLP.
type TelemetryConf struct {
	Enabled        bool    `yaml:"enabled"`
	ServiceName    string  `yaml:"service_name"`
	ServiceVersion string  `yaml:"service_version"`
	Endpoint       string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	Insecure       bool    `yaml:"insecure"`
	SamplingRate   float64 `yaml:"sampling_rate" validate:"gte=0,lte=1"`
}

// ReloadConf define as fontes de notificação de alteração da configuração.
type ReloadConf struct {
	Enabled     bool      `yaml:"enabled"`
	Debounce    string    `yaml:"debounce" validate:"omitempty,duration"`
	WatchFile   bool      `yaml:"watch_file"`
	SQSQueueURL string    `yaml:"sqs_queue_url"`
	Redis       RedisConf `yaml:"redis"`
}

type RedisConf struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Channel  string `yaml:"channel" validate:"required_with=Addr"`
}

// Endpoint é a definição de uma rota mockada e suas respostas possíveis.
type Endpoint struct {
	Name      string     `yaml:"name" validate:"required"`
	Method    string     `yaml:"method" validate:"required,httpmethod"`
	Path      string     `yaml:"path" validate:"required,pathpattern"`
	Stateful  bool       `yaml:"stateful"`
	StateKey  string     `yaml:"state_key"`
	Responses []Response `yaml:"responses" validate:"required,min=1,dive"`
}

// Response é uma regra de resposta. A ordem de declaração importa.
type Response struct {
	Status    int               `yaml:"status" validate:"gte=100,lt=600"`
	Condition string            `yaml:"condition" validate:"omitempty,condition"`
	Delay     *Delay            `yaml:"delay"`
	Weight    *float64          `yaml:"weight" validate:"omitempty,gte=0"`
	Default   bool              `yaml:"default"`
	Headers   map[string]string `yaml:"headers"`
	Body      Body              `yaml:"body"`
}

// Body é o template do corpo. Aceita string ou qualquer estrutura YAML,
// que é convertida para JSON.
type Body string

func (b *Body) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*b = Body(s)
		return nil
	}
	var v interface{}
	if err := node.Decode(&v); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("linha %d: body não serializável em JSON: %w", node.Line, err)
	}
	*b = Body(raw)
	return nil
}

// ApplyDefaults preenche os campos omitidos.
func (c *MockConfig) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MaxRequestSize == 0 {
		c.Server.MaxRequestSize = DefaultMaxRequestSize
	}
	if c.Server.AdminRoutes == nil {
		enabled := true
		c.Server.AdminRoutes = &enabled
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Metrics.Prometheus.Path == "" {
		c.Metrics.Prometheus.Path = DefaultMetricsPath
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = DefaultServiceName
	}
	if c.Telemetry.Enabled && c.Telemetry.SamplingRate == 0 {
		c.Telemetry.SamplingRate = 1
	}
}

func (s ServerConf) GetStateTTL() time.Duration {
	return parseDurationOr(s.StateTTL, DefaultStateTTL)
}

func (s ServerConf) GetSweepInterval() time.Duration {
	return parseDurationOr(s.StateSweepInterval, DefaultSweepInterval)
}

func (s ServerConf) GetReadTimeout() time.Duration {
	return parseDurationOr(s.ReadTimeout, 0)
}

func (s ServerConf) GetWriteTimeout() time.Duration {
	return parseDurationOr(s.WriteTimeout, 0)
}

func (s ServerConf) GetShutdownTimeout() time.Duration {
	return parseDurationOr(s.ShutdownTimeout, DefaultShutdown)
}

func (s ServerConf) AdminRoutesEnabled() bool {
	return s.AdminRoutes == nil || *s.AdminRoutes
}

func (r ReloadConf) GetDebounce() time.Duration {
	return parseDurationOr(r.Debounce, DefaultReloadDebounce)
}

// Addr devolve host:porta para o listener.
func (s ServerConf) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func parseDurationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

// HasWeight indica se a regra declarou peso explicitamente.
func (r Response) HasWeight() bool {
	return r.Weight != nil
}

// EffectiveWeight devolve o peso, 1 quando omitido.
func (r Response) EffectiveWeight() float64 {
	if r.Weight == nil {
		return 1
	}
	return *r.Weight
}
