package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/jsonpath"
	"github.com/raywall/fast-mock-server/pkg/metrics"
	"github.com/raywall/fast-mock-server/pkg/responder"
	"github.com/raywall/fast-mock-server/pkg/rules"
	"github.com/raywall/fast-mock-server/pkg/state"
	"github.com/rs/zerolog"
)

// Headers adicionados a toda resposta mockada.
const (
	HeaderRequestID    = "X-Request-ID"
	HeaderRequestCount = "X-Request-Count"
)

// StatusClientClosed é registrado quando o cliente desiste durante o delay.
const StatusClientClosed = 499

// StateObserver recebe o resultado de cada varredura do janitor.
type StateObserver interface {
	ObserveState(entries, swept int)
}

// ServiceEngine é o executor do mock: resolve a rota, escolhe a regra,
// aplica delay, renderiza e atualiza o estado por cliente.
type ServiceEngine struct {
	ConfigSource string
	Logger       zerolog.Logger
	Observer     metrics.Observer
	State        *state.Store

	loader    Loader
	validator *config.ConfigValidator
	selector  *Selector
	current   atomic.Pointer[RuleSet]
	reloadMu  sync.Mutex
	now       func() time.Time

	janitorInterval time.Duration
	stopJanitor     context.CancelFunc
	janitorDone     chan struct{}
}

type Option func(*ServiceEngine)

func WithLogger(l zerolog.Logger) Option {
	return func(se *ServiceEngine) { se.Logger = l }
}

func WithObserver(o metrics.Observer) Option {
	return func(se *ServiceEngine) { se.Observer = o }
}

// WithLoader define como Reload relê ConfigSource.
func WithLoader(l Loader) Option {
	return func(se *ServiceEngine) { se.loader = l }
}

func WithStateStore(s *state.Store) Option {
	return func(se *ServiceEngine) { se.State = s }
}

// WithClock substitui o relógio usado nos templates (testes).
func WithClock(now func() time.Time) Option {
	return func(se *ServiceEngine) { se.now = now }
}

// NewServiceEngine valida e publica a configuração inicial como geração 1.
// Erro aqui é fatal para o boot.
func NewServiceEngine(cfg *config.MockConfig, configSource string, opts ...Option) (*ServiceEngine, error) {
	se := &ServiceEngine{
		ConfigSource:    configSource,
		Logger:          zerolog.Nop(),
		Observer:        metrics.NopObserver{},
		validator:       config.NewValidator(),
		selector:        NewSelector(cfg.Server.RandomSeed),
		now:             time.Now,
		janitorInterval: cfg.Server.GetSweepInterval(),
	}
	for _, opt := range opts {
		opt(se)
	}
	if se.State == nil {
		se.State = state.NewStore(state.WithTTL(cfg.Server.GetStateTTL()))
	}
	se.Logger = se.Logger.With().Str("component", "engine").Logger()

	if err := se.validator.Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuração inicial inválida: %w", err)
	}
	rs, err := Compile(cfg, 1, rules.NewRuleManager())
	if err != nil {
		return nil, fmt.Errorf("falha ao compilar configuração inicial: %w", err)
	}
	se.current.Store(rs)

	se.startJanitor()

	se.Logger.Info().
		Uint64("generation", rs.Generation).
		Int("endpoints", len(rs.Endpoints)).
		Msg("RuleSet inicial publicado")
	return se, nil
}

// Current devolve o RuleSet publicado no momento.
func (se *ServiceEngine) Current() *RuleSet {
	return se.current.Load()
}

func (se *ServiceEngine) Execute(ctx context.Context, req *RequestDescriptor) (*ResponseDescriptor, error) {
	start := time.Now()
	// snapshot único: um reload concorrente não afeta esta requisição
	rs := se.current.Load()

	ep, params, err := rs.Match(req.Method, req.Path)
	if err != nil {
		se.observe(req, nil, -1, http.StatusNotFound, rs, start)
		return nil, err
	}

	clientKey := resolveClientKey(ep, req)
	var count int64
	if ep.Stateful {
		count = se.State.GetCount(clientKey, ep.Name)
	}

	var body *jsonpath.Document
	if ep.UsesBody && len(req.Body) > 0 {
		// corpo não JSON deixa os campos body.X ausentes
		if doc, perr := jsonpath.Parse(req.Body); perr == nil {
			body = doc
		} else {
			se.Logger.Debug().Err(perr).Str("endpoint", ep.Name).Msg("Corpo da requisição não é JSON")
		}
	}

	vars := buildVars(params, req, count)
	addBodyVars(vars, body, ep.BodyPaths)
	rule, err := se.selector.Select(ep, vars)
	if err != nil {
		se.Logger.Warn().Str("endpoint", ep.Name).Int64("request_count", count).Msg("Nenhuma regra elegível")
		se.observe(req, ep, -1, http.StatusInternalServerError, rs, start)
		return nil, fmt.Errorf("endpoint '%s': %w", ep.Name, err)
	}

	resp := &ResponseDescriptor{
		Endpoint:   ep.Name,
		Rule:       rule.Index,
		Generation: rs.Generation,
	}
	// incremento único, depois da seleção
	if ep.Stateful {
		resp.RequestCount = se.State.Increment(clientKey, ep.Name)
	}

	resp.Delay = se.selector.Duration(rule.Delay)
	if err := Sleep(ctx, resp.Delay); err != nil {
		se.Logger.Debug().Str("endpoint", ep.Name).Dur("delay", resp.Delay).Msg("Cliente desistiu durante o delay")
		se.observe(req, ep, rule.Index, StatusClientClosed, rs, start)
		return nil, err
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	rctx := &responder.Context{
		Method:       req.Method,
		Path:         req.Path,
		ClientIP:     req.ClientKey,
		RequestID:    requestID,
		RequestCount: count,
		Params:       params,
		Query:        req.Query,
		Headers:      req.Headers,
		Now:          se.now(),
		Body:         body,
	}
	resp.Status, resp.Body, resp.Headers = rule.Builder.Build(rctx)
	resp.Headers[HeaderRequestID] = requestID
	if ep.Stateful {
		resp.Headers[HeaderRequestCount] = strconv.FormatInt(resp.RequestCount, 10)
	}

	se.Logger.Debug().
		Str("endpoint", ep.Name).
		Int("rule", rule.Index).
		Int("status", resp.Status).
		Int64("request_count", count).
		Dur("delay", resp.Delay).
		Msg("Resposta selecionada")
	se.observe(req, ep, rule.Index, resp.Status, rs, start)
	return resp, nil
}

func (se *ServiceEngine) observe(req *RequestDescriptor, ep *Endpoint, rule, status int, rs *RuleSet, start time.Time) {
	ev := metrics.RequestEvent{
		Method:     req.Method,
		Rule:       rule,
		Status:     status,
		Latency:    time.Since(start),
		Generation: rs.Generation,
	}
	if ep != nil {
		ev.Endpoint = ep.Name
	}
	se.Observer.ObserveRequest(ev)
}

// resolveClientKey usa o header indicado em state_key quando presente.
func resolveClientKey(ep *Endpoint, req *RequestDescriptor) string {
	if ep.StateKey != "" && ep.StateKey != StateKeyClientIP && req.Headers != nil {
		if v := req.Headers.Get(ep.StateKey); v != "" {
			return v
		}
	}
	return req.ClientKey
}

// buildVars monta o ambiente das condições: parâmetros de path (nome puro e
// path.NOME), query.NOME, header.NOME (minúsculo e canônico), method e
// request_count.
func buildVars(params map[string]string, req *RequestDescriptor, count int64) rules.Vars {
	vars := make(rules.Vars, len(params)*2+len(req.Query)+len(req.Headers)*2+2)
	for name, values := range req.Query {
		if len(values) > 0 {
			vars["query."+name] = rules.String(values[0])
		}
	}
	for name, values := range req.Headers {
		if len(values) > 0 {
			v := rules.String(values[0])
			vars["header."+strings.ToLower(name)] = v
			vars["header."+http.CanonicalHeaderKey(name)] = v
		}
	}
	for name, value := range params {
		vars[name] = rules.String(value)
		vars["path."+name] = rules.String(value)
	}
	vars["method"] = rules.String(req.Method)
	vars["request_count"] = rules.Int(count)
	return vars
}

// addBodyVars expõe os campos do corpo JSON usados pelas condições.
// Objetos e arrays viram texto JSON.
func addBodyVars(vars rules.Vars, body *jsonpath.Document, paths []string) {
	if body == nil {
		return
	}
	for _, name := range paths {
		raw, ok := body.Get(strings.TrimPrefix(name, bodyPrefix))
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case nil:
			vars[name] = rules.Missing()
		case string:
			vars[name] = rules.String(v)
		case float64:
			vars[name] = rules.Number(v)
		case bool:
			vars[name] = rules.Bool(v)
		default:
			vars[name] = rules.String(jsonpath.Format(v))
		}
	}
}

// Reload relê ConfigSource pelo Loader e publica a nova geração. Em caso de
// erro o RuleSet anterior continua sendo servido.
func (se *ServiceEngine) Reload(ctx context.Context) error {
	if se.loader == nil {
		return errors.New("engine sem loader configurado para reload")
	}
	se.Logger.Info().Str("source", se.ConfigSource).Msg("🔄 Hot reload iniciado")

	cfg, err := se.loader.Load(ctx, se.ConfigSource)
	if err != nil {
		se.rejectReload(err)
		return fmt.Errorf("falha ao carregar nova configuração: %w", err)
	}
	_, err = se.Apply(cfg)
	return err
}

// Apply valida cfg e, se válida, publica como próxima geração com uma
// única troca atômica. Somente endpoints são considerados.
func (se *ServiceEngine) Apply(cfg *config.MockConfig) (*RuleSet, error) {
	se.reloadMu.Lock()
	defer se.reloadMu.Unlock()

	if err := se.validator.Validate(cfg); err != nil {
		se.rejectReload(err)
		return nil, err
	}
	next := se.current.Load().Generation + 1
	rs, err := Compile(cfg, next, rules.NewRuleManager())
	if err != nil {
		se.rejectReload(err)
		return nil, err
	}
	se.current.Store(rs)

	se.Observer.ObserveReload(metrics.ReloadEvent{
		Success:    true,
		Generation: rs.Generation,
		Endpoints:  len(rs.Endpoints),
	})
	se.Logger.Info().
		Uint64("generation", rs.Generation).
		Int("endpoints", len(rs.Endpoints)).
		Msg("✅ Hot reload concluído com sucesso")
	return rs, nil
}

func (se *ServiceEngine) rejectReload(err error) {
	current := se.current.Load()
	se.Observer.ObserveReload(metrics.ReloadEvent{
		Success:    false,
		Generation: current.Generation,
		Endpoints:  len(current.Endpoints),
		Err:        err,
	})
	se.Logger.Error().
		Err(err).
		Uint64("generation", current.Generation).
		Msg("Hot reload rejeitado, mantendo configuração anterior")
}

func (se *ServiceEngine) startJanitor() {
	ctx, cancel := context.WithCancel(context.Background())
	se.stopJanitor = cancel
	se.janitorDone = make(chan struct{})

	go func() {
		defer close(se.janitorDone)
		se.State.RunJanitor(ctx, se.janitorInterval, func(removed int) {
			if removed > 0 {
				se.Logger.Debug().Int("removed", removed).Msg("Estado expirado removido")
			}
			if obs, ok := se.Observer.(StateObserver); ok {
				obs.ObserveState(se.State.Len(), removed)
			}
		})
	}()
}

// Shutdown encerra o janitor do estado.
func (se *ServiceEngine) Shutdown(ctx context.Context) error {
	se.stopJanitor()
	select {
	case <-se.janitorDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
