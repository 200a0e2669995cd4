package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEval(t *testing.T) {
	vars := Vars{
		"id":            String("42"),
		"name":          String("alice"),
		"flag":          String("true"),
		"request_count": Int(3),
		"ratio":         String("0.75"),
	}

	cases := []struct {
		expr string
		want bool
	}{
		// contador
		{"request_count > 2", true},
		{"request_count > 3", false},
		{"request_count >= 3", true},
		{"request_count == 3", true},
		{"request_count != 3", false},
		{"2 < request_count", true},
		{"3 <= request_count", true},

		// strings exatas
		{"name == 'alice'", true},
		{"name == 'Alice'", false},
		{"name != 'bob'", true},
		{`id == "42"`, true},

		// coerção numérica
		{"id == 42", true},
		{"id > 41", true},
		{"ratio < 1", true},
		{"id >= '40'", true},

		// coerção falha vira false, inclusive para !=
		{"name > 1", false},
		{"name == 1", false},
		{"name != 1", false},
		{"name < 'z'", false},

		// booleanos
		{"flag == true", true},
		{"flag != true", false},
		{"name == true", false},
		{"flag > true", false},

		// variável inexistente
		{"missing == 'x'", false},
		{"missing != 'x'", true},
		{"missing > 0", false},
		{"missing < 0", false},

		// conectores
		{"request_count > 2 && name == 'alice'", true},
		{"request_count > 5 || name == 'alice'", true},
		{"request_count > 5 || name == 'bob'", false},
		{"name == 'bob' || name == 'alice' && request_count == 3", true},
		{"(name == 'bob' || name == 'alice') && request_count == 4", false},
	}

	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			expr := MustParse(tc.expr)
			assert.Equal(t, tc.want, expr.Eval(vars))
		})
	}
}

func TestEval_NilVars(t *testing.T) {
	assert.False(t, MustParse("request_count > 0").Eval(nil))
	assert.True(t, MustParse("request_count != 0").Eval(nil))
}

func TestEval_IsPure(t *testing.T) {
	vars := Vars{"request_count": Int(1)}
	expr := MustParse("request_count == 1")
	for i := 0; i < 5; i++ {
		assert.True(t, expr.Eval(vars))
	}
	assert.Equal(t, Int(1), vars["request_count"])
	assert.Len(t, vars, 1)
}

func TestValue_Coercion(t *testing.T) {
	n, ok := String(" 12 ").AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 12.0, n)

	_, ok = Bool(true).AsNumber()
	assert.False(t, ok)

	b, ok := String("FALSE").AsBool()
	assert.True(t, ok)
	assert.False(t, b)

	assert.Equal(t, "3", Int(3).Text())
	assert.Equal(t, "0.5", Number(0.5).Text())
	assert.Equal(t, "", Missing().Text())
	assert.Equal(t, "missing", Missing().Kind().String())
}
