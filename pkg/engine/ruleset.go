package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/responder"
	"github.com/raywall/fast-mock-server/pkg/router"
	"github.com/raywall/fast-mock-server/pkg/rules"
)

// StateKeyClientIP usa o ClientKey do transporte como identidade.
const StateKeyClientIP = "client_ip"

// Rule é uma ResponseRule compilada.
type Rule struct {
	Index     int // posição declarada no endpoint
	Status    int
	Condition *rules.Expression // nil quando ausente
	Delay     *config.Delay
	Weight    float64
	HasWeight bool
	Default   bool
	Builder   *responder.ResponseBuilder
}

// Endpoint é a definição imutável servida por um RuleSet.
type Endpoint struct {
	Name     string
	Method   string
	Path     string
	Stateful bool
	StateKey string
	Rules    []*Rule // regras não default, em ordem de declaração
	Default  *Rule

	// BodyPaths são as variáveis body.X usadas nas condições; UsesBody indica
	// que condições ou templates leem o corpo JSON da requisição.
	BodyPaths []string
	UsesBody  bool
}

const bodyPrefix = "body."

// RuleSet é o snapshot publicado atomicamente. Nada nele muda depois de
// Compile; leitores concorrentes não precisam de lock.
type RuleSet struct {
	Generation uint64
	LoadedAt   time.Time
	Endpoints  []*Endpoint
	router     *router.Router[*Endpoint]
}

// Compile transforma uma configuração já validada em RuleSet.
func Compile(cfg *config.MockConfig, generation uint64, rm *rules.RuleManager) (*RuleSet, error) {
	rs := &RuleSet{
		Generation: generation,
		LoadedAt:   time.Now(),
		Endpoints:  make([]*Endpoint, 0, len(cfg.Endpoints)),
		router:     router.New[*Endpoint](),
	}

	for i, epCfg := range cfg.Endpoints {
		ep := &Endpoint{
			Name:     epCfg.Name,
			Method:   strings.ToUpper(epCfg.Method),
			Path:     epCfg.Path,
			Stateful: epCfg.Stateful,
			StateKey: epCfg.StateKey,
		}

		for j, respCfg := range epCfg.Responses {
			rule := &Rule{
				Index:     j,
				Status:    respCfg.Status,
				Delay:     respCfg.Delay,
				Weight:    respCfg.EffectiveWeight(),
				HasWeight: respCfg.HasWeight(),
				Default:   respCfg.Default,
				Builder:   responder.NewResponseBuilder(respCfg),
			}
			if respCfg.Condition != "" {
				expr, err := rm.Compile(respCfg.Condition)
				if err != nil {
					return nil, fmt.Errorf("endpoint '%s' resposta %d: %w", ep.Name, j, err)
				}
				rule.Condition = expr
				for _, name := range expr.Variables() {
					if strings.HasPrefix(name, bodyPrefix) && !slices.Contains(ep.BodyPaths, name) {
						ep.BodyPaths = append(ep.BodyPaths, name)
					}
				}
			}
			if !ep.UsesBody {
				ep.UsesBody = slices.ContainsFunc(rule.Builder.Placeholders(), func(name string) bool {
					return strings.HasPrefix(name, bodyPrefix)
				})
			}

			if rule.Default {
				if ep.Default != nil {
					return nil, fmt.Errorf("endpoint '%s': mais de uma resposta default", ep.Name)
				}
				ep.Default = rule
				continue
			}
			ep.Rules = append(ep.Rules, rule)
		}

		if len(ep.BodyPaths) > 0 {
			ep.UsesBody = true
		}

		if _, err := rs.router.Add(ep.Method, ep.Path, ep); err != nil {
			return nil, fmt.Errorf("endpoints[%d] '%s': %w", i, ep.Name, err)
		}
		rs.Endpoints = append(rs.Endpoints, ep)
	}

	return rs, nil
}

// Match resolve a requisição para um endpoint e seus parâmetros de path.
func (rs *RuleSet) Match(method, path string) (*Endpoint, map[string]string, error) {
	m, ok := rs.router.Lookup(method, path)
	if !ok {
		return nil, nil, ErrRouteNotFound
	}
	return m.Route.Value, m.Params, nil
}

// Allowed lista os métodos registrados para path.
func (rs *RuleSet) Allowed(path string) []string {
	return rs.router.Allowed(path)
}

// Shadowed devolve pares (sombreado, vencedor) de endpoints com o mesmo
// método e o mesmo formato de path.
func (rs *RuleSet) Shadowed() [][2]*Endpoint {
	var out [][2]*Endpoint
	for _, pair := range rs.router.Shadowed() {
		out = append(out, [2]*Endpoint{pair[0].Value, pair[1].Value})
	}
	return out
}

// EndpointSummary é a visão pública usada pela rota administrativa.
type EndpointSummary struct {
	Name       string `json:"name"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Stateful   bool   `json:"stateful"`
	Responses  int    `json:"responses"`
	HasDefault bool   `json:"has_default"`
}

type RuleSetSummary struct {
	Generation uint64            `json:"generation"`
	LoadedAt   time.Time         `json:"loaded_at"`
	Endpoints  []EndpointSummary `json:"endpoints"`
}

func (rs *RuleSet) Summary() RuleSetSummary {
	out := RuleSetSummary{
		Generation: rs.Generation,
		LoadedAt:   rs.LoadedAt,
		Endpoints:  make([]EndpointSummary, 0, len(rs.Endpoints)),
	}
	for _, ep := range rs.Endpoints {
		n := len(ep.Rules)
		if ep.Default != nil {
			n++
		}
		out.Endpoints = append(out.Endpoints, EndpointSummary{
			Name:       ep.Name,
			Method:     ep.Method,
			Path:       ep.Path,
			Stateful:   ep.Stateful,
			Responses:  n,
			HasDefault: ep.Default != nil,
		})
	}
	return out
}
