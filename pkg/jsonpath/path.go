package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Document é um corpo JSON decodificado uma única vez e consultado por
// caminho. Exemplos de caminhos válidos:
//   - "nome"
//   - "dados.empregador"
//   - "cursos[1].nome" ou "cursos.1.nome"
//   - "[0].id" quando a raiz é um array
type Document struct {
	root interface{}
}

// Parse decodifica data. Corpo vazio é erro.
func Parse(data []byte) (*Document, error) {
	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("erro ao fazer parse do JSON: %w", err)
	}
	return &Document{root: root}, nil
}

// FromValue envolve um valor já decodificado.
func FromValue(v interface{}) *Document {
	return &Document{root: v}
}

// Get navega até o caminho. Caminho vazio devolve a raiz.
func (d *Document) Get(path string) (interface{}, bool) {
	if d == nil {
		return nil, false
	}
	current := d.root
	for _, part := range splitPath(strings.TrimSpace(path)) {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[part.field]
			if part.isIndex || !ok {
				return nil, false
			}
			current = v
		case []interface{}:
			idx := part.index
			if !part.isIndex {
				// "cursos.1" equivale a "cursos[1]"
				n, err := strconv.Atoi(part.field)
				if err != nil {
					return nil, false
				}
				idx = n
			}
			if idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// Exists indica se o caminho existe, mesmo que o valor seja null.
func (d *Document) Exists(path string) bool {
	_, ok := d.Get(path)
	return ok
}

// String formata o valor do caminho para templates: strings sem aspas,
// números sem zeros à direita, objetos e arrays como JSON compacto.
// null resulta em "".
func (d *Document) String(path string) (string, bool) {
	v, ok := d.Get(path)
	if !ok {
		return "", false
	}
	return Format(v), true
}

// Format converte um valor decodificado para texto.
func Format(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}

type pathPart struct {
	field   string
	isIndex bool
	index   int
}

// splitPath aceita separadores "." e acessos "[n]". Índices inválidos viram
// campos literais, que não casam com nenhum array.
func splitPath(path string) []pathPart {
	var parts []pathPart
	for _, segment := range strings.Split(path, ".") {
		for segment != "" {
			open := strings.IndexByte(segment, '[')
			if open == -1 {
				parts = append(parts, pathPart{field: segment})
				break
			}
			closing := strings.IndexByte(segment[open:], ']')
			if closing == -1 {
				parts = append(parts, pathPart{field: segment})
				break
			}
			closing += open

			if open > 0 {
				parts = append(parts, pathPart{field: segment[:open]})
			}
			raw := segment[open+1 : closing]
			if n, err := strconv.Atoi(raw); err == nil {
				parts = append(parts, pathPart{isIndex: true, index: n})
			} else {
				parts = append(parts, pathPart{field: raw})
			}
			segment = segment[closing+1:]
		}
	}
	return parts
}
