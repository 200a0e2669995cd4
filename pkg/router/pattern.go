package router

import (
	"fmt"
	"strings"
)

// Segment é um pedaço do path: literal ou parâmetro nomeado.
type Segment struct {
	Literal string
	Param   string
}

// IsParam indica se o segmento captura um valor.
func (s Segment) IsParam() bool {
	return s.Param != ""
}

// Pattern é o path de um endpoint já decomposto em segmentos.
type Pattern struct {
	raw      string
	segments []Segment
	literals int
}

// ParsePattern valida e decompõe um path como "/users/:id/orders/{order}".
// Parâmetros aceitam as formas ":nome" e "{nome}" e devem ser únicos.
func ParsePattern(raw string) (*Pattern, error) {
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("path '%s' deve começar com '/'", raw)
	}

	p := &Pattern{raw: raw}
	seen := make(map[string]bool)
	for i, part := range splitPath(raw) {
		if part == "" {
			return nil, fmt.Errorf("path '%s' possui segmento vazio na posição %d", raw, i)
		}

		name, isParam, err := paramName(part)
		if err != nil {
			return nil, fmt.Errorf("path '%s': %w", raw, err)
		}
		if !isParam {
			if strings.ContainsAny(part, "{}") {
				return nil, fmt.Errorf("path '%s': segmento '%s' mal formado", raw, part)
			}
			p.segments = append(p.segments, Segment{Literal: part})
			p.literals++
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("path '%s': parâmetro '%s' duplicado", raw, name)
		}
		seen[name] = true
		p.segments = append(p.segments, Segment{Param: name})
	}
	return p, nil
}

func paramName(part string) (string, bool, error) {
	var name string
	switch {
	case strings.HasPrefix(part, ":"):
		name = part[1:]
	case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
		name = part[1 : len(part)-1]
	default:
		return "", false, nil
	}
	if name == "" {
		return "", false, fmt.Errorf("parâmetro sem nome em '%s'", part)
	}
	for _, r := range name {
		if !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return "", false, fmt.Errorf("nome de parâmetro inválido '%s'", name)
		}
	}
	return name, true, nil
}

// splitPath remove a barra inicial e separa os segmentos. "/" não tem segmentos.
func splitPath(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (p *Pattern) String() string {
	return p.raw
}

// Segments devolve uma cópia dos segmentos.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Specificity é a quantidade de segmentos literais.
func (p *Pattern) Specificity() int {
	return p.literals
}

// Params lista os nomes dos parâmetros na ordem do path.
func (p *Pattern) Params() []string {
	var names []string
	for _, s := range p.segments {
		if s.IsParam() {
			names = append(names, s.Param)
		}
	}
	return names
}

// Match compara segmento a segmento. Literais são case-sensitive e
// parâmetros capturam qualquer segmento não vazio.
func (p *Pattern) Match(parts []string) (map[string]string, bool) {
	if len(parts) != len(p.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range p.segments {
		if !seg.IsParam() {
			if seg.Literal != parts[i] {
				return nil, false
			}
			continue
		}
		if parts[i] == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string, len(p.segments)-p.literals)
		}
		params[seg.Param] = parts[i]
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

// Shape identifica padrões que sempre casam as mesmas requisições
// ("/users/:id" e "/users/{uid}" têm o mesmo shape).
func (p *Pattern) Shape() string {
	var sb strings.Builder
	for _, s := range p.segments {
		sb.WriteByte('/')
		if s.IsParam() {
			sb.WriteString(":")
			continue
		}
		sb.WriteString(s.Literal)
	}
	if sb.Len() == 0 {
		return "/"
	}
	return sb.String()
}
