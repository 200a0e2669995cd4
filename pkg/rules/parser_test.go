package rules

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	cases := []string{
		"request_count > 2",
		"request_count>2",
		"2 < request_count",
		`id == "42"`,
		"id == '42'",
		"flag == true",
		"flag != FALSE",
		"query.page >= 10 && query.page <= 20",
		"a == 1 || b == 2 && c == 3",
		"(a == 1 || b == 2) && c == 3",
		"header.x-user-id == 'u-1'",
		"temp > -3.5",
		"status = 'active'",
		`name == "say \"hi\""`,
	}
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			expr, err := Parse(src)
			require.NoError(t, err)
			assert.Equal(t, src, expr.String())
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"vazia":               "   ",
		"operador solto":      "request_count >",
		"sem operador":        "request_count",
		"duas variáveis":      "a == b",
		"dois literais":       "1 == 2",
		"and incompleto":      "a == 1 &",
		"negação":             "!a",
		"string aberta":       `a == "abc`,
		"parêntese aberto":    "(a == 1",
		"sobra de tokens":     "a == 1 b",
		"caractere inválido":  "a == 1 # comentário",
		"operador duplicado":  "a >> 1",
		"conector sem lado":   "&& a == 1",
		"parêntese sem fecho": "a == 1)",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "erro deve ser *ParseError: %v", err)
		})
	}
}

func TestExpression_Variables(t *testing.T) {
	expr := MustParse("(id == 1 || query.x == 'a') && id != 3 && request_count > 0")
	names := expr.Variables()
	sort.Strings(names)
	assert.Equal(t, []string{"id", "query.x", "request_count"}, names)
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("a ==") })
}
