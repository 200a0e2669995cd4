package responder

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raywall/fast-mock-server/pkg/jsonpath"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-\[\]]+)\s*\}\}`)

// Context reúne os valores disponíveis para os placeholders de uma requisição.
type Context struct {
	Method       string
	Path         string
	ClientIP     string
	RequestID    string
	RequestCount int64
	Params       map[string]string
	Query        map[string][]string
	Headers      http.Header
	Now          time.Time
	// Body é o corpo JSON da requisição, nil quando ausente ou inválido.
	Body *jsonpath.Document
}

// Lookup resolve um nome de placeholder. Os nomes embutidos têm precedência
// sobre parâmetros de path homônimos; use path.NOME para desambiguar.
func (c *Context) Lookup(name string) (string, bool) {
	switch name {
	case "method":
		return c.Method, true
	case "path":
		return c.Path, true
	case "client_ip":
		return c.ClientIP, true
	case "request_id":
		return c.RequestID, true
	case "request_count":
		return strconv.FormatInt(c.RequestCount, 10), true
	case "timestamp":
		now := c.Now
		if now.IsZero() {
			now = time.Now()
		}
		return now.UTC().Format(time.RFC3339), true
	case "uuid":
		return uuid.NewString(), true
	}

	if prefix, key, ok := strings.Cut(name, "."); ok {
		switch prefix {
		case "query":
			if vals := c.Query[key]; len(vals) > 0 {
				return vals[0], true
			}
			return "", false
		case "header":
			if c.Headers == nil {
				return "", false
			}
			if vals := c.Headers.Values(key); len(vals) > 0 {
				return vals[0], true
			}
			return "", false
		case "path":
			v, ok := c.Params[key]
			return v, ok
		case "body":
			return c.Body.String(key)
		}
	}

	v, ok := c.Params[name]
	return v, ok
}

type segment struct {
	literal string
	name    string
}

// Template é um corpo (ou header) pré-processado em trechos literais e
// placeholders, para não reprocessar a string a cada requisição.
type Template struct {
	raw      string
	segments []segment
}

// Compile nunca falha: chaves que não formam um placeholder são literais.
func Compile(src string) *Template {
	t := &Template{raw: src}
	last := 0
	for _, loc := range placeholder.FindAllStringSubmatchIndex(src, -1) {
		if loc[0] > last {
			t.segments = append(t.segments, segment{literal: src[last:loc[0]]})
		}
		t.segments = append(t.segments, segment{name: src[loc[2]:loc[3]]})
		last = loc[1]
	}
	if last < len(src) {
		t.segments = append(t.segments, segment{literal: src[last:]})
	}
	return t
}

func (t *Template) String() string {
	return t.raw
}

// Placeholders lista os nomes referenciados, na ordem em que aparecem.
func (t *Template) Placeholders() []string {
	var names []string
	for _, s := range t.segments {
		if s.name != "" {
			names = append(names, s.name)
		}
	}
	return names
}

// Render substitui cada placeholder pelo valor do contexto. Placeholders
// sem valor viram string vazia.
func (t *Template) Render(ctx *Context) string {
	if len(t.segments) == 1 && t.segments[0].name == "" {
		return t.raw
	}
	var b strings.Builder
	b.Grow(len(t.raw))
	for _, s := range t.segments {
		if s.name == "" {
			b.WriteString(s.literal)
			continue
		}
		if v, ok := ctx.Lookup(s.name); ok {
			b.WriteString(v)
		}
	}
	return b.String()
}

// Render compila e renderiza em um único passo.
func Render(src string, ctx *Context) string {
	return Compile(src).Render(ctx)
}
