package transport

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/raywall/fast-mock-server/pkg/engine"
	"github.com/rs/zerolog/log"
)

// LambdaHandler adapta eventos do API Gateway para o Executor.
type LambdaHandler struct {
	executor engine.Executor
}

// NewLambdaHandler cria uma nova instância do adaptador
func NewLambdaHandler(executor engine.Executor) *LambdaHandler {
	return &LambdaHandler{executor: executor}
}

// Handle processa a requisição Lambda
func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	// o API Gateway pode normalizar os headers para minúsculas
	headers := toHeader(req.Headers, req.MultiValueHeaders)
	corrID := headers.Get(HeaderCorrelationID)
	if corrID == "" {
		corrID = uuid.NewString()
	}

	logger := log.With().Str("correlation_id", corrID).Logger()
	ctx = logger.WithContext(ctx)
	ctx = context.WithValue(ctx, ContextKeyCorrID, corrID)

	response := h.execute(ctx, req, headers)

	logger.Info().
		Str("method", req.HTTPMethod).
		Str("path", req.Path).
		Int("status", response.StatusCode).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("lambda request completed")

	if response.Headers == nil {
		response.Headers = make(map[string]string)
	}
	response.Headers[HeaderCorrelationID] = corrID

	return response, nil
}

func (h *LambdaHandler) execute(ctx context.Context, req events.APIGatewayProxyRequest, headers http.Header) events.APIGatewayProxyResponse {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return jsonResponse(http.StatusBadRequest, `{"error":"invalid base64 body"}`)
		}
		body = decoded
	}

	clientIP := req.RequestContext.Identity.SourceIP
	if clientIP == "" {
		clientIP = "unknown"
	}

	desc := &engine.RequestDescriptor{
		Method:    strings.ToUpper(req.HTTPMethod),
		Path:      req.Path,
		Query:     toQuery(req.QueryStringParameters, req.MultiValueQueryStringParameters),
		Headers:   headers,
		Body:      body,
		ClientKey: clientIP,
		RequestID: requestID(headers.Get(HeaderRequestID)),
	}

	resp, err := h.executor.Execute(ctx, desc)
	if err != nil {
		switch {
		case engine.IsRouteNotFound(err):
			return jsonResponse(http.StatusNotFound, `{"error":"no matching endpoint found"}`)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return jsonResponse(engine.StatusClientClosed, `{"error":"request cancelled"}`)
		}
		log.Ctx(ctx).Error().Err(err).Msg("Erro crítico na execução Lambda")
		return jsonResponse(http.StatusInternalServerError, `{"error":"internal server error"}`)
	}

	respHeaders := make(map[string]string, len(resp.Headers))
	for k, v := range resp.Headers {
		respHeaders[k] = v
	}

	return events.APIGatewayProxyResponse{
		StatusCode: resp.Status,
		Headers:    respHeaders,
		Body:       string(resp.Body),
	}
}

func jsonResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func toHeader(single map[string]string, multi map[string][]string) http.Header {
	h := make(http.Header, len(single)+len(multi))
	for k, vs := range multi {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	for k, v := range single {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
	return h
}

func toQuery(single map[string]string, multi map[string][]string) url.Values {
	q := make(url.Values, len(single)+len(multi))
	for k, vs := range multi {
		q[k] = append([]string(nil), vs...)
	}
	for k, v := range single {
		if _, ok := q[k]; !ok {
			q.Set(k, v)
		}
	}
	return q
}
