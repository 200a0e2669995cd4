package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/raywall/fast-mock-server/envloader"
	"github.com/raywall/fast-mock-server/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bootYAML = `
server:
  port: 9999
logging: {level: "error", format: "json"}
metrics:
  prometheus: {enabled: true}
endpoints:
  - name: boot
    method: GET
    path: /boot/:id
    responses:
      - status: 200
        body: "boot {{id}}"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func stubServer(t *testing.T, fn func(ctx context.Context, srv *transport.HTTPServer) error) {
	t.Helper()
	original := serverStarter
	serverStarter = fn
	t.Cleanup(func() { serverStarter = original })
}

func TestRun_ServerBootstrap(t *testing.T) {
	path := writeConfig(t, bootYAML)

	called := false
	stubServer(t, func(ctx context.Context, srv *transport.HTTPServer) error {
		called = true
		h := srv.Handler()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/boot/7", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "boot 7", rec.Body.String())

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "mock_requests_total")

		// sem hot reload a rota administrativa não existe
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/-/reload", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		return nil
	})

	err := run(context.Background(), &envloader.Settings{ConfigPath: path, Runtime: envloader.RuntimeLocal})
	require.NoError(t, err)
	assert.True(t, called, "O servidor HTTP não foi iniciado")
}

func TestRun_HotReloadFromFile(t *testing.T) {
	path := writeConfig(t, bootYAML)

	stubServer(t, func(ctx context.Context, srv *transport.HTTPServer) error {
		h := srv.Handler()

		updated := `
endpoints:
  - name: boot
    method: GET
    path: /boot/:id
    responses:
      - status: 201
        body: "reloaded {{id}}"
`
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

		assert.Eventually(t, func() bool {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest("GET", "/boot/1", nil))
			return rec.Code == http.StatusCreated && rec.Body.String() == "reloaded 1"
		}, 3*time.Second, 20*time.Millisecond)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/-/reload", nil))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		return nil
	})

	err := run(context.Background(), &envloader.Settings{
		ConfigPath:     path,
		Runtime:        envloader.RuntimeLocal,
		HotReload:      true,
		ReloadDebounce: 10 * time.Millisecond,
	})
	require.NoError(t, err)
}

func TestRun_LambdaRuntime(t *testing.T) {
	path := writeConfig(t, bootYAML)

	original := lambdaStarter
	var handler interface{}
	lambdaStarter = func(h interface{}) { handler = h }
	t.Cleanup(func() { lambdaStarter = original })

	err := run(context.Background(), &envloader.Settings{ConfigPath: path, Runtime: envloader.RuntimeLambda})
	require.NoError(t, err)
	assert.NotNil(t, handler)
}

func TestRun_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
endpoints:
  - name: quebrado
    method: FETCH
    path: /x
    responses: [{status: 200}]
`)
	stubServer(t, func(context.Context, *transport.HTTPServer) error {
		t.Fatal("servidor não deveria iniciar")
		return nil
	})

	err := run(context.Background(), &envloader.Settings{ConfigPath: path, Runtime: envloader.RuntimeLocal})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH")
}

func TestRootCmd_FlagsOverrideEnvironment(t *testing.T) {
	path := writeConfig(t, bootYAML)
	t.Setenv("CONFIG_FILE_PATH", "/nao/existe.yaml")

	called := false
	stubServer(t, func(context.Context, *transport.HTTPServer) error {
		called = true
		return nil
	})

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", path, "--log-level", "error"})
	require.NoError(t, cmd.Execute())
	assert.True(t, called)
}

func TestRootCmd_InvalidRuntime(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--runtime", "kubernetes"})
	cmd.SetErr(&discard{})
	assert.Error(t, cmd.Execute())
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
