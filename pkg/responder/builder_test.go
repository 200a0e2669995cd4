package responder

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/jsonpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() *Context {
	return &Context{
		Method:       "GET",
		Path:         "/users/42",
		ClientIP:     "127.0.0.1",
		RequestID:    "req-1",
		RequestCount: 3,
		Params:       map[string]string{"id": "42"},
		Query:        url.Values{"page": {"2", "3"}},
		Headers:      http.Header{"X-Tenant": {"acme"}},
		Now:          time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTemplate_Render(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"Path Param", `{"id":"{{id}}"}`, `{"id":"42"}`},
		{"Unresolved", `{"id":"{{missing}}"}`, `{"id":""}`},
		{"Spaces", `{{ id }}`, `42`},
		{"Builtins", `{{method}} {{path}} {{client_ip}}`, `GET /users/42 127.0.0.1`},
		{"Request Data", `{{request_id}}/{{request_count}}`, `req-1/3`},
		{"Timestamp", `{{timestamp}}`, `2024-05-01T12:00:00Z`},
		{"Query First Value", `{{query.page}}`, `2`},
		{"Query Missing", `[{{query.sort}}]`, `[]`},
		{"Header Case Insensitive", `{{header.x-tenant}}`, `acme`},
		{"Explicit Path Prefix", `{{path.id}}`, `42`},
		{"Plain Text", `sem placeholders`, `sem placeholders`},
		{"Broken Braces", `{{ não fecha`, `{{ não fecha`},
		{"Repeated", `{{id}}-{{id}}`, `42-42`},
		{"Empty", ``, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, ctx))
		})
	}
}

func TestTemplate_UUID(t *testing.T) {
	out := Render("{{uuid}}", testContext())
	_, err := uuid.Parse(out)
	assert.NoError(t, err)
}

func TestTemplate_BuiltinWinsOverParam(t *testing.T) {
	ctx := testContext()
	ctx.Params["method"] = "param"
	assert.Equal(t, "GET", Render("{{method}}", ctx))
	assert.Equal(t, "param", Render("{{path.method}}", ctx))
}

func TestTemplate_Placeholders(t *testing.T) {
	tpl := Compile("a {{id}} b {{ query.x }}")
	assert.Equal(t, []string{"id", "query.x"}, tpl.Placeholders())
	assert.Equal(t, "a {{id}} b {{ query.x }}", tpl.String())
}

func TestTemplate_NilMaps(t *testing.T) {
	assert.Equal(t, "[||]", Render("[{{id}}|{{query.a}}|{{header.b}}]", &Context{}))
}

func TestResponseBuilder_Build(t *testing.T) {
	cfg := config.Response{
		Status: 201,
		Body:   `{"id":"{{id}}","mensagem":"Processado com sucesso"}`,
		Headers: map[string]string{
			"X-User-ID": "{{id}}",
			"X-Static":  "fixo",
		},
	}

	builder := NewResponseBuilder(cfg)
	code, body, headers := builder.Build(testContext())

	assert.Equal(t, 201, code)
	assert.Equal(t, 201, builder.StatusCode())
	assert.JSONEq(t, `{"id":"42","mensagem":"Processado com sucesso"}`, string(body))
	assert.Equal(t, "42", headers["X-User-ID"])
	assert.Equal(t, "fixo", headers["X-Static"])
}

func TestTemplate_BodyFields(t *testing.T) {
	doc, err := jsonpath.Parse([]byte(`{"user":{"name":"ana","roles":["admin"]},"qty":3}`))
	require.NoError(t, err)

	ctx := testContext()
	ctx.Body = doc

	out := Render(`{{body.user.name}}|{{body.qty}}|{{body.user.roles}}|{{body.user.roles[0]}}|{{body.nada}}`, ctx)
	assert.Equal(t, `ana|3|["admin"]|admin|`, out)

	// sem corpo JSON os campos ficam vazios
	assert.Equal(t, "[]", Render("[{{body.user.name}}]", testContext()))
}

func TestResponseBuilder_Placeholders(t *testing.T) {
	builder := NewResponseBuilder(config.Response{
		Status:  200,
		Body:    "{{body.a}} {{id}}",
		Headers: map[string]string{"X-B": "{{body.b}}"},
	})
	assert.ElementsMatch(t, []string{"body.a", "id", "body.b"}, builder.Placeholders())
}
