package rules

import (
	"strconv"
	"strings"
)

// Kind identifica o tipo de um Value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "missing"
	}
}

// Value é um valor do ambiente de avaliação ou um literal da expressão.
// O zero value representa uma variável inexistente.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Vars é o ambiente de variáveis de uma requisição (path, query, headers, request_count).
type Vars map[string]Value

func String(s string) Value {
	return Value{kind: KindString, str: s}
}

func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

func Int(i int64) Value {
	return Value{kind: KindNumber, num: float64(i)}
}

func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Missing() Value {
	return Value{}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// Lookup retorna a variável ou Missing quando ela não existe.
func (vars Vars) Lookup(name string) Value {
	if vars == nil {
		return Missing()
	}
	return vars[name]
}

// Text devolve a representação textual usada em comparações de string e templates.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// AsNumber tenta a coerção numérica. Falha não é erro: apenas ok=false.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsBool tenta a coerção booleana ("true", "1", "false", "0"...).
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v.str)))
		if err != nil {
			return false, false
		}
		return b, true
	default:
		return false, false
	}
}
