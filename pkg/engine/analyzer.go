package engine

import (
	"errors"
	"fmt"

	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/rules"
)

// ValidationReport contém o resultado detalhado da análise.
type ValidationReport struct {
	Valid     bool     `json:"valid"`
	Endpoints int      `json:"endpoints"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Analyze valida a configuração e aponta problemas que não impedem a carga
// mas indicam regras que nunca serão usadas.
func Analyze(cfg *config.MockConfig) (*ValidationReport, error) {
	report := &ValidationReport{
		Valid:     true,
		Endpoints: len(cfg.Endpoints),
		Errors:    []string{},
		Warnings:  []string{},
	}

	// 1. Validação estrutural e semântica
	if err := config.NewValidator().Validate(cfg); err != nil {
		var ve *config.ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		report.Errors = append(report.Errors, ve.Problems...)
		report.Valid = false
		return report, nil
	}

	// 2. Endpoints sombreados (mesmo método e formato de path)
	rs, err := Compile(cfg, 0, rules.NewRuleManager())
	if err != nil {
		return nil, fmt.Errorf("falha interna ao compilar para análise: %w", err)
	}
	for _, pair := range rs.Shadowed() {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"Endpoint '%s' (%s %s) nunca será escolhido: '%s' (%s %s) foi registrado antes com o mesmo formato",
			pair[0].Name, pair[0].Method, pair[0].Path, pair[1].Name, pair[1].Method, pair[1].Path))
	}

	// 3. Regras por endpoint
	for _, ep := range rs.Endpoints {
		report.Warnings = append(report.Warnings, analyzeRules(ep)...)
	}

	return report, nil
}

func analyzeRules(ep *Endpoint) []string {
	var warnings []string

	if ep.Default != nil && ep.Default.Condition != nil {
		warnings = append(warnings, fmt.Sprintf(
			"Endpoint '%s' resposta %d: a condição da resposta default é ignorada", ep.Name, ep.Default.Index))
	}

	weighted := 0
	var weightSum float64
	for _, rule := range ep.Rules {
		if rule.HasWeight {
			weighted++
			weightSum += rule.Weight
		}
	}
	if weighted > 1 && weightSum == 0 {
		warnings = append(warnings, fmt.Sprintf(
			"Endpoint '%s': soma dos pesos é zero, a primeira regra elegível será sempre usada", ep.Name))
	}

	// sem sorteio, tudo depois da primeira regra incondicional é inalcançável
	if weighted > 1 {
		return warnings
	}
	for i, rule := range ep.Rules {
		if rule.Condition != nil {
			continue
		}
		for _, later := range ep.Rules[i+1:] {
			warnings = append(warnings, fmt.Sprintf(
				"Endpoint '%s' resposta %d: inalcançável, a resposta %d não tem condição", ep.Name, later.Index, rule.Index))
		}
		if ep.Default != nil {
			warnings = append(warnings, fmt.Sprintf(
				"Endpoint '%s' resposta %d: default inalcançável, a resposta %d não tem condição", ep.Name, ep.Default.Index, rule.Index))
		}
		break
	}
	return warnings
}
