package responder

import (
	"github.com/raywall/fast-mock-server/pkg/config"
)

// ResponseBuilder guarda uma regra de resposta com corpo e headers já compilados.
type ResponseBuilder struct {
	statusCode int
	body       *Template
	headers    map[string]*Template
}

func NewResponseBuilder(cfg config.Response) *ResponseBuilder {
	rb := &ResponseBuilder{
		statusCode: cfg.Status,
		body:       Compile(string(cfg.Body)),
		headers:    make(map[string]*Template, len(cfg.Headers)),
	}
	for name, value := range cfg.Headers {
		rb.headers[name] = Compile(value)
	}
	return rb
}

func (rb *ResponseBuilder) StatusCode() int {
	return rb.statusCode
}

// Placeholders lista os nomes usados no corpo e nos headers.
func (rb *ResponseBuilder) Placeholders() []string {
	names := rb.body.Placeholders()
	for _, tpl := range rb.headers {
		names = append(names, tpl.Placeholders()...)
	}
	return names
}

// Build renderiza corpo e headers. Nunca falha.
func (rb *ResponseBuilder) Build(ctx *Context) (int, []byte, map[string]string) {
	respHeaders := make(map[string]string, len(rb.headers))
	for name, tpl := range rb.headers {
		respHeaders[name] = tpl.Render(ctx)
	}
	return rb.statusCode, []byte(rb.body.Render(ctx)), respHeaders
}
