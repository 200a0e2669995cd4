package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/engine"
	"github.com/raywall/fast-mock-server/pkg/observability"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderCorrelationID = "x-correlation-id"
	HeaderLatency       = "x-latency-ms"
	HeaderRequestID     = "x-request-id"
	HeaderForwardedFor  = "X-Forwarded-For"
)

type ctxKey string

// ContextKeyCorrID guarda o correlation id no contexto da requisição.
const ContextKeyCorrID ctxKey = "correlation_id"

// Rotas administrativas.
const (
	RouteHealth  = "/health"
	RouteReload  = "/-/reload"
	RouteRuleSet = "/-/ruleset"
)

// Notifier recebe avisos de "configuração alterada". *engine.HotReloader
// satisfaz a interface.
type Notifier interface {
	Notify()
}

// RuleSetSource expõe o RuleSet publicado. *engine.ServiceEngine satisfaz.
type RuleSetSource interface {
	Current() *engine.RuleSet
}

// HTTPServer expõe o Executor via net/http, com rotas administrativas
// registradas antes do handler catch-all dos mocks.
type HTTPServer struct {
	executor    engine.Executor
	cfg         config.ServerConf
	notifier    Notifier
	rulesets    RuleSetSource
	metrics     http.Handler
	metricsPath string
	tracer      trace.Tracer
	logger      zerolog.Logger
	started     time.Time

	srv *http.Server
}

type ServerOption func(*HTTPServer)

// WithNotifier habilita POST /-/reload.
func WithNotifier(n Notifier) ServerOption {
	return func(s *HTTPServer) { s.notifier = n }
}

// WithRuleSetSource habilita GET /-/ruleset e o cabeçalho Allow no 405.
func WithRuleSetSource(src RuleSetSource) ServerOption {
	return func(s *HTTPServer) { s.rulesets = src }
}

// WithMetricsHandler registra o handler de scrape em path.
func WithMetricsHandler(path string, h http.Handler) ServerOption {
	return func(s *HTTPServer) {
		s.metricsPath = path
		s.metrics = h
	}
}

func WithTracer(t trace.Tracer) ServerOption {
	return func(s *HTTPServer) { s.tracer = t }
}

func WithServerLogger(l zerolog.Logger) ServerOption {
	return func(s *HTTPServer) { s.logger = l }
}

func NewHTTPServer(executor engine.Executor, cfg config.ServerConf, opts ...ServerOption) *HTTPServer {
	s := &HTTPServer{
		executor: executor,
		cfg:      cfg,
		tracer:   otel.Tracer(observability.TracerName),
		logger:   log.With().Str("component", "http_server").Logger(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler monta o roteador completo já envolvido pelo middleware de
// observabilidade.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()

	if s.cfg.AdminRoutesEnabled() {
		r.HandleFunc(RouteHealth, s.handleHealth).Methods(http.MethodGet)
		if s.metrics != nil && s.metricsPath != "" {
			r.Handle(s.metricsPath, s.metrics).Methods(http.MethodGet)
		}
		if s.notifier != nil {
			r.HandleFunc(RouteReload, s.handleReload).Methods(http.MethodPost)
		}
		if s.rulesets != nil {
			r.HandleFunc(RouteRuleSet, s.handleRuleSet).Methods(http.MethodGet)
		}
	}

	r.PathPrefix("/").HandlerFunc(s.handleMock)

	return ObservabilityMiddleware(s.logger, s.tracer, r)
}

// ListenAndServe bloqueia até ctx ser cancelado e então faz o shutdown
// gracioso respeitando server.shutdown_timeout.
func (s *HTTPServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("falha ao abrir listener em %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.GetReadTimeout(),
		WriteTimeout: s.cfg.GetWriteTimeout(),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Servidor HTTP ouvindo")
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	s.logger.Info().Msg("Encerrando servidor HTTP")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown do servidor HTTP: %w", err)
	}
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":    "healthy",
		"service":   config.DefaultServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}
	if s.rulesets != nil {
		body["generation"] = s.rulesets.Current().Generation
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *HTTPServer) handleReload(w http.ResponseWriter, r *http.Request) {
	s.notifier.Notify()
	log.Ctx(r.Context()).Info().Msg("Reload solicitado via rota administrativa")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "reload scheduled"})
}

func (s *HTTPServer) handleRuleSet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rulesets.Current().Summary())
}

func (s *HTTPServer) handleMock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxRequestSize()))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("request body too large", ""))
				return
			}
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read request body", ""))
			return
		}
		body = data
	}
	if len(body) > 0 && !utf8.Valid(body) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid UTF-8 sequence in request body", ""))
		return
	}

	req := &engine.RequestDescriptor{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Headers:   r.Header,
		Body:      body,
		ClientKey: ClientIP(r, s.cfg.TrustForwardedFor),
		RequestID: requestID(r.Header.Get(HeaderRequestID)),
	}

	resp, err := s.executor.Execute(ctx, req)
	if err != nil {
		s.writeError(w, r, req, err)
		return
	}

	log.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("endpoint", resp.Endpoint).
			Int("rule", resp.Rule).
			Uint64("generation", resp.Generation)
	})
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		observability.AttrEndpoint.String(resp.Endpoint),
		observability.AttrRule.Int(resp.Rule),
		observability.AttrGeneration.Int64(int64(resp.Generation)),
	)

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, req *engine.RequestDescriptor, err error) {
	logger := log.Ctx(r.Context())
	w.Header().Set(engine.HeaderRequestID, req.RequestID)

	switch {
	case engine.IsRouteNotFound(err):
		if s.rulesets != nil {
			if allowed := s.rulesets.Current().Allowed(req.Path); len(allowed) > 0 {
				w.Header().Set("Allow", strings.Join(allowed, ", "))
				writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed", req.RequestID))
				return
			}
		}
		writeJSON(w, http.StatusNotFound, errorBody("no matching endpoint found", req.RequestID))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// cliente já foi embora, nada a escrever
		logger.Debug().Err(err).Msg("Requisição cancelada pelo cliente")
		w.WriteHeader(engine.StatusClientClosed)
	default:
		logger.Error().Err(err).Msg("Erro na execução do mock")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal server error", req.RequestID))
	}
}

func (s *HTTPServer) maxRequestSize() int64 {
	if s.cfg.MaxRequestSize <= 0 {
		return config.DefaultMaxRequestSize
	}
	return s.cfg.MaxRequestSize
}

// ClientIP devolve o IP remoto sem porta. Com trustForwarded, o primeiro
// endereço de X-Forwarded-For prevalece.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Get(HeaderForwardedFor); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestID(inbound string) string {
	if inbound != "" {
		return inbound
	}
	return uuid.NewString()
}

func errorBody(msg, requestID string) map[string]string {
	body := map[string]string{"error": msg}
	if requestID != "" {
		body["request_id"] = requestID
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// --- MIDDLEWARE DE OBSERVABILIDADE ---
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode  int
	startTime   time.Time
	wroteHeader bool
}

func (rw *responseWriterWrapper) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	duration := time.Since(rw.startTime)
	rw.Header().Set(HeaderLatency, fmt.Sprintf("%d", duration.Milliseconds()))
	rw.ResponseWriter.WriteHeader(code)
	rw.wroteHeader = true
}

func (rw *responseWriterWrapper) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// ObservabilityMiddleware propaga o correlation id, abre o span da
// requisição e registra a linha de acesso.
func ObservabilityMiddleware(base zerolog.Logger, tracer trace.Tracer, next http.Handler) http.Handler {
	propagator := otel.GetTextMapPropagator()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		corrID := r.Header.Get(HeaderCorrelationID)
		if corrID == "" {
			corrID = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, corrID)

		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("correlation_id", corrID),
			),
		)
		defer span.End()

		logger := base.With().Str("correlation_id", corrID).Logger()
		ctx = logger.WithContext(ctx)
		ctx = context.WithValue(ctx, ContextKeyCorrID, corrID)

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			startTime:      start,
		}

		next.ServeHTTP(wrapper, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", wrapper.statusCode))
		if wrapper.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(wrapper.statusCode))
		}

		// handlers podem ter acrescentado campos ao logger do contexto
		zerolog.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Msg("request completed")
	})
}
