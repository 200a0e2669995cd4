package rules

import (
	"fmt"
	"sync"
)

// RuleManager gerencia a compilação das condições. Expressões idênticas
// são compiladas uma única vez e compartilhadas entre regras.
type RuleManager struct {
	mu    sync.Mutex
	cache map[string]*Expression
}

// NewRuleManager inicializa um gerenciador com cache vazio.
func NewRuleManager() *RuleManager {
	return &RuleManager{cache: make(map[string]*Expression)}
}

// Compile devolve a condição compilada (ou o erro de sintaxe).
func (rm *RuleManager) Compile(src string) (*Expression, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if expr, ok := rm.cache[src]; ok {
		return expr, nil
	}
	expr, err := Parse(src)
	if err != nil {
		return nil, fmt.Errorf("erro de compilação da condição '%s': %w", src, err)
	}
	rm.cache[src] = expr
	return expr, nil
}

// Check valida apenas a sintaxe, sem guardar o resultado.
func (rm *RuleManager) Check(src string) error {
	_, err := rm.Compile(src)
	return err
}

// EvaluateBool processa a condição contra o ambiente.
// Expressão vazia aprova; expressão inválida reprova.
func (rm *RuleManager) EvaluateBool(src string, vars Vars) bool {
	if src == "" {
		return true
	}
	expr, err := rm.Compile(src)
	if err != nil {
		return false
	}
	return expr.Eval(vars)
}

// Len informa quantas expressões distintas estão em cache.
func (rm *RuleManager) Len() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.cache)
}
