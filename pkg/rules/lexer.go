package rules

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokCompare
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// lex quebra a condição em tokens. Não existe estado entre chamadas.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", pos: i})
			i++

		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", pos: i})
			i++

		case c == '&' || c == '|':
			if i+1 >= len(src) || src[i+1] != c {
				return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("operador incompleto '%c'", c)}
			}
			kind := tokAnd
			if c == '|' {
				kind = tokOr
			}
			tokens = append(tokens, token{kind: kind, text: src[i : i+2], pos: i})
			i += 2

		case c == '=' || c == '!' || c == '<' || c == '>':
			op := string(c)
			if i+1 < len(src) && src[i+1] == '=' {
				op += "="
			}
			if op == "!" {
				return nil, &ParseError{Pos: i, Msg: "negação não suportada"}
			}
			// "=" isolado é aceito como sinônimo de "=="
			if op == "=" {
				tokens = append(tokens, token{kind: tokCompare, text: "==", pos: i})
				i++
				continue
			}
			tokens = append(tokens, token{kind: tokCompare, text: op, pos: i})
			i += len(op)

		case c == '"' || c == '\'':
			s, next, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: s, pos: i})
			i = next

		case isDigit(c) || (c == '-' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			i++
			seenDot := false
			for i < len(src) && (isDigit(src[i]) || (src[i] == '.' && !seenDot)) {
				if src[i] == '.' {
					seenDot = true
				}
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], pos: start})

		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			word := src[start:i]
			kind := tokIdent
			switch strings.ToLower(word) {
			case "true":
				kind = tokTrue
			case "false":
				kind = tokFalse
			}
			tokens = append(tokens, token{kind: kind, text: word, pos: start})

		default:
			return nil, &ParseError{Pos: i, Msg: fmt.Sprintf("caractere inesperado '%c'", c)}
		}
	}
	tokens = append(tokens, token{kind: tokEOF, pos: len(src)})
	return tokens, nil
}

func lexString(src string, start int) (string, int, error) {
	quote := src[start]
	var sb strings.Builder
	i := start + 1
	for i < len(src) {
		c := src[i]
		if c == '\\' && i+1 < len(src) {
			sb.WriteByte(src[i+1])
			i += 2
			continue
		}
		if c == quote {
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(c)
		i++
	}
	return "", 0, &ParseError{Pos: start, Msg: "string não terminada"}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Hífen e ponto fazem parte do identificador para permitir header.x-user-id.
func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.' || c == '-'
}
