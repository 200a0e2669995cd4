package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/raywall/fast-mock-server/pkg/router"
	"github.com/raywall/fast-mock-server/pkg/rules"
)

// ValidationError agrega todos os problemas encontrados em uma configuração.
// A configuração inteira é rejeitada quando existe ao menos um problema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuração inválida:\n- %s", strings.Join(e.Problems, "\n- "))
}

// IsValidationError informa se err (ou algum erro encadeado) é um ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type ConfigValidator struct {
	validate *validator.Validate
	rules    *rules.RuleManager
}

// NewValidator cria uma nova instância do validador com as regras customizadas
// (httpmethod, pathpattern, condition, duration) registradas.
func NewValidator() *ConfigValidator {
	cv := &ConfigValidator{
		validate: validator.New(),
		rules:    rules.NewRuleManager(),
	}

	_ = cv.validate.RegisterValidation("httpmethod", func(fl validator.FieldLevel) bool {
		return router.ValidMethod(fl.Field().String())
	})
	_ = cv.validate.RegisterValidation("pathpattern", func(fl validator.FieldLevel) bool {
		_, err := router.ParsePattern(fl.Field().String())
		return err == nil
	})
	_ = cv.validate.RegisterValidation("condition", func(fl validator.FieldLevel) bool {
		return cv.rules.Check(fl.Field().String()) == nil
	})
	_ = cv.validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})

	return cv
}

// Validate realiza validações estruturais (tags) e semânticas (lógica).
// Condições são apenas compiladas, nunca avaliadas.
func (cv *ConfigValidator) Validate(cfg *MockConfig) error {
	var problems []string

	// 1. Validação Estrutural (Tags do struct: required, oneof, etc)
	if err := cv.validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("erro de validação estrutural: %w", err)
		}
		for _, e := range validationErrors {
			problems = append(problems, cv.describe(e))
		}
	}

	// 2. Validação Semântica (Regras de negócio da configuração)
	problems = append(problems, cv.validateSemantics(cfg)...)

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// describe traduz o erro da tag, trazendo o detalhe do parser quando existir.
func (cv *ConfigValidator) describe(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "MockConfig.")
	value := fmt.Sprintf("%v", e.Value())

	switch e.Tag() {
	case "httpmethod":
		return fmt.Sprintf("%s: método HTTP desconhecido '%s'", field, value)
	case "pathpattern":
		_, err := router.ParsePattern(value)
		return fmt.Sprintf("%s: %v", field, err)
	case "condition":
		err := cv.rules.Check(value)
		return fmt.Sprintf("%s: %v", field, err)
	case "duration":
		return fmt.Sprintf("%s: duração inválida '%s'", field, value)
	case "gte", "lt", "lte":
		return fmt.Sprintf("%s: valor '%s' falhou na regra '%s=%s'", field, value, e.Tag(), e.Param())
	}
	return fmt.Sprintf("Campo '%s' falhou na regra '%s'", field, e.Tag())
}

func (cv *ConfigValidator) validateSemantics(cfg *MockConfig) []string {
	var problems []string

	// 1. Unicidade dos nomes: o estado por cliente é indexado pelo nome
	seenNames := make(map[string]int)
	for i, ep := range cfg.Endpoints {
		if ep.Name == "" {
			continue
		}
		if prev, ok := seenNames[ep.Name]; ok {
			problems = append(problems, fmt.Sprintf("Endpoints[%d]: nome '%s' duplicado (já usado em Endpoints[%d])", i, ep.Name, prev))
			continue
		}
		seenNames[ep.Name] = i
	}

	for i, ep := range cfg.Endpoints {
		// 2. No máximo uma resposta default
		defaults := 0
		for j, resp := range ep.Responses {
			if resp.Default {
				defaults++
			}
			// 3. Limites do delay
			if resp.Delay != nil && resp.Delay.Min > resp.Delay.Max {
				problems = append(problems, fmt.Sprintf("Endpoints[%d].Responses[%d]: delay mínimo (%s) maior que o máximo (%s)", i, j, resp.Delay.Min, resp.Delay.Max))
			}
		}
		if defaults > 1 {
			problems = append(problems, fmt.Sprintf("Endpoints[%d] (%s): no máximo uma resposta default, encontradas %d", i, ep.Name, defaults))
		}

		// 4. state_key só faz sentido em endpoints stateful
		if ep.StateKey != "" && !ep.Stateful {
			problems = append(problems, fmt.Sprintf("Endpoints[%d] (%s): state_key definido em endpoint não stateful", i, ep.Name))
		}
	}

	return problems
}
