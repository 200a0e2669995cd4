package engine

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/raywall/fast-mock-server/pkg/config"
)

// Loader é responsável por carregar e decodificar a configuração do mock.
// Ele abstrai a origem do arquivo (sistema de arquivos, S3, DynamoDB, Redis).
type Loader interface {
	// Load lê a configuração a partir de uma origem e retorna a struct validada.
	Load(ctx context.Context, source string) (*config.MockConfig, error)
}

// Executor é a interface de tempo de execução consumida pelos transportes.
// Deve ser thread-safe: é chamada concorrentemente por cada requisição.
type Executor interface {
	// Execute resolve, seleciona e renderiza a resposta de uma requisição.
	Execute(ctx context.Context, req *RequestDescriptor) (*ResponseDescriptor, error)

	// Shutdown libera recursos em segundo plano (janitor do estado).
	Shutdown(ctx context.Context) error
}

// Reloadable é o alvo de um HotReloader.
type Reloadable interface {
	Reload(ctx context.Context) error
}

// RequestDescriptor é a requisição já extraída do transporte.
type RequestDescriptor struct {
	Method    string
	Path      string
	Query     url.Values
	Headers   http.Header
	Body      []byte
	ClientKey string // identidade do cliente, normalmente o IP remoto
	RequestID string
}

// ResponseDescriptor é o resultado entregue ao transporte. O delay já foi
// aplicado quando Execute retorna.
type ResponseDescriptor struct {
	Status       int
	Body         []byte
	Headers      map[string]string
	Delay        time.Duration
	Endpoint     string
	Rule         int
	Generation   uint64
	RequestCount int64 // contagem após esta requisição; 0 se não stateful
}
