package router

import (
	"fmt"
	"net/http"
	"strings"
)

// methods aceitos na configuração dos endpoints.
var methods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
	http.MethodConnect: true,
}

// ValidMethod informa se o verbo HTTP é reconhecido (case-insensitive).
func ValidMethod(method string) bool {
	return methods[strings.ToUpper(method)]
}

// Route associa método e padrão a um valor arbitrário (o endpoint).
type Route[T any] struct {
	Method  string
	Pattern *Pattern
	Value   T
}

// Match é o resultado de uma resolução bem sucedida.
type Match[T any] struct {
	Route  *Route[T]
	Params map[string]string
}

// Router resolve método + path para a rota mais específica.
// Depois de construído é imutável e seguro para leitura concorrente.
type Router[T any] struct {
	// método -> quantidade de segmentos -> rotas em ordem de registro
	index map[string]map[int][]*Route[T]
	size  int
}

// New cria um router vazio.
func New[T any]() *Router[T] {
	return &Router[T]{index: make(map[string]map[int][]*Route[T])}
}

// Add registra a rota. Deve ser chamado apenas durante a construção.
func (r *Router[T]) Add(method, path string, value T) (*Route[T], error) {
	if !ValidMethod(method) {
		return nil, fmt.Errorf("método HTTP inválido: '%s'", method)
	}
	pattern, err := ParsePattern(path)
	if err != nil {
		return nil, err
	}
	m := strings.ToUpper(method)
	route := &Route[T]{Method: m, Pattern: pattern, Value: value}
	bySize, ok := r.index[m]
	if !ok {
		bySize = make(map[int][]*Route[T])
		r.index[m] = bySize
	}
	n := len(pattern.segments)
	bySize[n] = append(bySize[n], route)
	r.size++
	return route, nil
}

// Len é o total de rotas registradas.
func (r *Router[T]) Len() int {
	return r.size
}

// Lookup devolve a rota com mais segmentos literais; no empate vence a
// registrada primeiro.
func (r *Router[T]) Lookup(method, path string) (*Match[T], bool) {
	bySize, ok := r.index[strings.ToUpper(method)]
	if !ok {
		return nil, false
	}
	parts := splitPath(path)

	var best *Route[T]
	var bestParams map[string]string
	for _, route := range bySize[len(parts)] {
		if best != nil && route.Pattern.literals <= best.Pattern.literals {
			// a ordem de registro já garante o desempate
			continue
		}
		params, ok := route.Pattern.Match(parts)
		if !ok {
			continue
		}
		best, bestParams = route, params
	}
	if best == nil {
		return nil, false
	}
	return &Match[T]{Route: best, Params: bestParams}, true
}

// Allowed lista os métodos que possuem alguma rota para o path.
func (r *Router[T]) Allowed(path string) []string {
	parts := splitPath(path)
	var out []string
	for method, bySize := range r.index {
		for _, route := range bySize[len(parts)] {
			if _, ok := route.Pattern.Match(parts); ok {
				out = append(out, method)
				break
			}
		}
	}
	return out
}

// Shadowed devolve pares (sombreada, vencedora) de rotas com o mesmo método
// e shape: a segunda nunca será escolhida.
func (r *Router[T]) Shadowed() [][2]*Route[T] {
	var out [][2]*Route[T]
	for _, bySize := range r.index {
		for _, routes := range bySize {
			first := make(map[string]*Route[T])
			for _, route := range routes {
				shape := route.Pattern.Shape()
				if winner, ok := first[shape]; ok {
					out = append(out, [2]*Route[T]{route, winner})
					continue
				}
				first[shape] = route
			}
		}
	}
	return out
}
