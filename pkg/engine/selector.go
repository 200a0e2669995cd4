package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/rules"
)

// Selector escolhe a regra de resposta e sorteia delays. O gerador é
// compartilhado entre requisições e protegido por mutex.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector usa seed quando informado, para execuções reproduzíveis.
func NewSelector(seed *uint64) *Selector {
	var src rand.Source
	if seed != nil {
		src = rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{rng: rand.New(src)}
}

// Eligible filtra as regras não default cuja condição é verdadeira (ou
// ausente), preservando a ordem declarada.
func Eligible(ep *Endpoint, vars rules.Vars) []*Rule {
	out := make([]*Rule, 0, len(ep.Rules))
	for _, rule := range ep.Rules {
		if rule.Condition == nil || rule.Condition.Eval(vars) {
			out = append(out, rule)
		}
	}
	return out
}

// Select aplica a política de seleção:
//   - mais de uma regra elegível com peso explícito: sorteio ponderado
//     (peso omitido vale 1; soma zero cai na primeira elegível);
//   - caso contrário, a primeira elegível;
//   - sem elegíveis, a default; sem default, ErrNoEligibleRule.
func (s *Selector) Select(ep *Endpoint, vars rules.Vars) (*Rule, error) {
	eligible := Eligible(ep, vars)

	if len(eligible) == 0 {
		if ep.Default != nil {
			return ep.Default, nil
		}
		return nil, ErrNoEligibleRule
	}

	weighted := 0
	for _, rule := range eligible {
		if rule.HasWeight {
			weighted++
		}
	}
	if weighted > 1 {
		return s.pickWeighted(eligible), nil
	}
	return eligible[0], nil
}

func (s *Selector) pickWeighted(eligible []*Rule) *Rule {
	var total float64
	for _, rule := range eligible {
		total += rule.Weight
	}
	if total <= 0 {
		return eligible[0]
	}

	target := s.draw() * total
	var cumulative float64
	var last *Rule
	for _, rule := range eligible {
		if rule.Weight <= 0 {
			continue
		}
		cumulative += rule.Weight
		last = rule
		if target < cumulative {
			return rule
		}
	}
	// arredondamento de ponto flutuante
	return last
}

// Duration resolve o delay: fixo, ou uniforme em [Min, Max).
func (s *Selector) Duration(d *config.Delay) time.Duration {
	if d == nil {
		return 0
	}
	if d.Max <= d.Min {
		return d.Min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return d.Min + time.Duration(s.rng.Int64N(int64(d.Max-d.Min)))
}

func (s *Selector) draw() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// Sleep suspende apenas a requisição atual. Retorna ctx.Err() se o cliente
// desistir antes do fim.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
