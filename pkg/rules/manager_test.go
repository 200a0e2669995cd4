package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateBool(t *testing.T) {
	rm := NewRuleManager()

	vars := Vars{
		"id":            String("42"),
		"query.type":    String("admin"),
		"request_count": Int(3),
	}

	// Cenário 1: Sucesso
	assert.True(t, rm.EvaluateBool("request_count >= 3 && query.type == 'admin'", vars))

	// Cenário 2: Falha
	assert.False(t, rm.EvaluateBool("request_count < 1", vars))

	// Cenário 3: Expressão vazia aprova
	assert.True(t, rm.EvaluateBool("", vars))

	// Cenário 4: Expressão inválida reprova em vez de falhar
	assert.False(t, rm.EvaluateBool("request_count >", vars))
}

func TestRuleManager_CompileCache(t *testing.T) {
	rm := NewRuleManager()

	first, err := rm.Compile("request_count > 2")
	require.NoError(t, err)
	second, err := rm.Compile("request_count > 2")
	require.NoError(t, err)

	assert.Same(t, first, second, "expressões idênticas devem ser compartilhadas")
	assert.Equal(t, 1, rm.Len())

	_, err = rm.Compile("request_count >> 2")
	assert.Error(t, err)
	assert.Equal(t, 1, rm.Len(), "expressões inválidas não entram no cache")
}

func TestRuleManager_Check(t *testing.T) {
	rm := NewRuleManager()
	assert.NoError(t, rm.Check(`header.x-tenant == "acme" || id == 7`))
	assert.Error(t, rm.Check(`id == `))
}
