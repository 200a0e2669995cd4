package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseError descreve uma condição sintaticamente inválida.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("posição %d: %s", e.Pos, e.Msg)
}

// CompareOp é um operador de comparação da gramática.
type CompareOp string

const (
	OpEq CompareOp = "=="
	OpNe CompareOp = "!="
	OpGt CompareOp = ">"
	OpLt CompareOp = "<"
	OpGe CompareOp = ">="
	OpLe CompareOp = "<="
)

// flip inverte o operador quando o literal aparece à esquerda ("2 < request_count").
func (op CompareOp) flip() CompareOp {
	switch op {
	case OpGt:
		return OpLt
	case OpLt:
		return OpGt
	case OpGe:
		return OpLe
	case OpLe:
		return OpGe
	default:
		return op
	}
}

type node interface {
	eval(vars Vars) bool
	collect(names map[string]struct{})
}

type andNode struct{ left, right node }

type orNode struct{ left, right node }

type compareNode struct {
	ref     string
	op      CompareOp
	literal Value
}

// Expression é a condição compilada, imutável e segura para uso concorrente.
type Expression struct {
	source string
	root   node
}

// Parse compila a condição. Gramática:
//
//	expr    := and ( "||" and )*
//	and     := primary ( "&&" primary )*
//	primary := "(" expr ")" | operand OP operand
//	operand := IDENT | STRING | NUMBER | true | false
//
// Exatamente um dos lados de uma comparação deve ser uma variável.
func Parse(src string) (*Expression, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &ParseError{Pos: 0, Msg: "expressão vazia"}
	}
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("token inesperado '%s'", tok.text)}
	}
	return &Expression{source: src, root: root}, nil
}

// MustParse é usado em testes e em condições fixas conhecidas.
func MustParse(src string) *Expression {
	expr, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return expr
}

func (e *Expression) String() string {
	return e.source
}

// Variables lista as variáveis referenciadas, sem repetição.
func (e *Expression) Variables() []string {
	set := make(map[string]struct{})
	e.root.collect(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	return names
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = &andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parsePrimary() (node, error) {
	if p.peek().kind == tokLParen {
		open := p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.kind != tokRParen {
			return nil, &ParseError{Pos: open.pos, Msg: "parêntese não fechado"}
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	lhs := p.next()
	if !isOperand(lhs) {
		return nil, unexpected(lhs, "variável ou literal")
	}
	opTok := p.next()
	if opTok.kind != tokCompare {
		return nil, unexpected(opTok, "operador de comparação")
	}
	rhs := p.next()
	if !isOperand(rhs) {
		return nil, unexpected(rhs, "variável ou literal")
	}

	op := CompareOp(opTok.text)
	switch {
	case lhs.kind == tokIdent && rhs.kind == tokIdent:
		return nil, &ParseError{Pos: lhs.pos, Msg: "comparação entre duas variáveis não suportada"}
	case lhs.kind != tokIdent && rhs.kind != tokIdent:
		return nil, &ParseError{Pos: lhs.pos, Msg: "comparação entre dois literais não suportada"}
	case lhs.kind == tokIdent:
		lit, err := literalValue(rhs)
		if err != nil {
			return nil, err
		}
		return &compareNode{ref: lhs.text, op: op, literal: lit}, nil
	default:
		lit, err := literalValue(lhs)
		if err != nil {
			return nil, err
		}
		return &compareNode{ref: rhs.text, op: op.flip(), literal: lit}, nil
	}
}

func isOperand(tok token) bool {
	switch tok.kind {
	case tokIdent, tokString, tokNumber, tokTrue, tokFalse:
		return true
	}
	return false
}

func literalValue(tok token) (Value, error) {
	switch tok.kind {
	case tokString:
		return String(tok.text), nil
	case tokTrue:
		return Bool(true), nil
	case tokFalse:
		return Bool(false), nil
	case tokNumber:
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return Value{}, &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("número inválido '%s'", tok.text)}
		}
		return Number(f), nil
	}
	return Value{}, unexpected(tok, "literal")
}

func unexpected(tok token, want string) error {
	if tok.kind == tokEOF {
		return &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("fim inesperado, esperado %s", want)}
	}
	return &ParseError{Pos: tok.pos, Msg: fmt.Sprintf("esperado %s, encontrado '%s'", want, tok.text)}
}
