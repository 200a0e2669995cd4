package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/raywall/fast-mock-server/envloader"
	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/config/injector"
	"github.com/raywall/fast-mock-server/pkg/engine"
	"github.com/raywall/fast-mock-server/pkg/logger"
	"github.com/raywall/fast-mock-server/pkg/metrics"
	"github.com/raywall/fast-mock-server/pkg/observability"
	"github.com/raywall/fast-mock-server/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Variáveis injetáveis para mocking
	serverStarter = func(ctx context.Context, srv *transport.HTTPServer) error {
		return srv.ListenAndServe(ctx)
	}
	lambdaStarter = func(handler interface{}) { lambda.Start(handler) }
	sqsFactory    = func(ctx context.Context) (transport.SQSClient, error) {
		awsCfg, err := injector.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return sqs.NewFromConfig(awsCfg), nil
	}
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd usa as variáveis de ambiente (envloader) como default das flags.
func newRootCmd() *cobra.Command {
	settings, envErr := envloader.LoadSettings()
	if settings == nil {
		settings = &envloader.Settings{ConfigPath: "mock.yaml", Runtime: envloader.RuntimeLocal}
	}

	cmd := &cobra.Command{
		Use:   "fast-mock-server",
		Short: "Servidor de mocks HTTP dirigido por YAML",
		Long: `Servidor de mocks HTTP configurado por YAML.

Cada endpoint declara uma lista ordenada de respostas com condições,
delays, pesos e templates. Endpoints stateful contam requisições por
cliente, o que permite simular cenários como "falhe duas vezes e depois
responda 200".`,
		Example: `  # Arquivo local com hot reload
  fast-mock-server --config mock.yaml --hot-reload

  # Configuração no S3 rodando como Lambda
  CONFIG_FILE_PATH=s3://bucket/mock.yaml MOCK_RUNTIME=lambda fast-mock-server`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return envErr
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), settings)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&settings.ConfigPath, "config", "c", settings.ConfigPath, "Origem da configuração (arquivo, file://, s3://, dynamodb://, redis://)")
	f.StringVar(&settings.Runtime, "runtime", settings.Runtime, "Runtime: local ou lambda")
	f.BoolVar(&settings.HotReload, "hot-reload", settings.HotReload, "Habilita hot reload dos endpoints")
	f.DurationVar(&settings.ReloadDebounce, "reload-debounce", settings.ReloadDebounce, "Janela de debounce do hot reload (sobrescreve reload.debounce)")
	f.StringVar(&settings.LogLevel, "log-level", settings.LogLevel, "Nível de log (sobrescreve logging.level)")

	return cmd
}

// run contém a lógica principal testável
func run(ctx context.Context, settings *envloader.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// 1. Carrega Configuração (Loader)
	loader := engine.NewUniversalLoader()
	cfg, err := loader.Load(ctx, settings.ConfigPath)
	if err != nil {
		return err
	}
	// variáveis DD_* sobrescrevem o bloco do YAML
	if err := envloader.Load(&cfg.Metrics.Datadog); err != nil {
		return err
	}
	if settings.LogLevel != "" {
		cfg.Logging.Level = settings.LogLevel
	}

	// 2. Ambient stack
	lg := logger.Configure(cfg.Logging)
	log.Logger = lg

	m, err := observability.SetupMetrics(cfg.Metrics)
	if err != nil {
		return err
	}
	defer m.Close()

	tracer, shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// 3. Inicializa Engine (Boot Time)
	svcEngine, err := engine.NewServiceEngine(cfg, settings.ConfigPath,
		engine.WithLogger(lg),
		engine.WithObserver(metrics.NewProcessor(m.Provider, lg)),
		engine.WithLoader(loader),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = svcEngine.Shutdown(context.Background())
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Seleciona Runtime Strategy
	if settings.IsLambda() {
		if settings.HotReload || cfg.Reload.Enabled {
			lg.Warn().Msg("Hot reload ignorado no runtime lambda")
		}
		handler := transport.NewLambdaHandler(svcEngine)
		lambdaStarter(handler.Handle)
		return nil
	}

	opts := []transport.ServerOption{
		transport.WithRuleSetSource(svcEngine),
		transport.WithTracer(tracer),
		transport.WithServerLogger(lg.With().Str("component", "http_server").Logger()),
	}
	if m.Handler != nil {
		opts = append(opts, transport.WithMetricsHandler(cfg.Metrics.Prometheus.Path, m.Handler))
	}

	if settings.HotReload || cfg.Reload.Enabled {
		debounce := cfg.Reload.GetDebounce()
		if settings.ReloadDebounce > 0 {
			debounce = settings.ReloadDebounce
		}
		reloader := engine.NewHotReloader(svcEngine, debounce, engine.WithReloaderLogger(lg))
		go reloader.Run(ctx)

		if err := startWatchers(ctx, cfg, settings.ConfigPath, reloader, lg); err != nil {
			return err
		}
		go notifyOnSignal(ctx, reloader, syscall.SIGHUP)
		opts = append(opts, transport.WithNotifier(reloader))
	}

	return serverStarter(ctx, transport.NewHTTPServer(svcEngine, cfg.Server, opts...))
}

// startWatchers liga as fontes de "configuração alterada" declaradas em
// reload. O arquivo local é observado também quando apenas --hot-reload foi
// informado.
func startWatchers(ctx context.Context, cfg *config.MockConfig, source string, n transport.Notifier, lg zerolog.Logger) error {
	watchFile := engine.IsLocalSource(source) && (cfg.Reload.WatchFile || !cfg.Reload.Enabled)
	if watchFile {
		fw, err := transport.NewFileWatcher(engine.FilePath(source), n)
		if err != nil {
			return fmt.Errorf("falha ao observar arquivo de configuração: %w", err)
		}
		go fw.Start(ctx)
	}

	if cfg.Reload.SQSQueueURL != "" {
		client, err := sqsFactory(ctx)
		if err != nil {
			return fmt.Errorf("falha ao criar cliente SQS: %w", err)
		}
		go transport.NewSQSWatcher(client, cfg.Reload.SQSQueueURL, n).Start(ctx)
	}

	if cfg.Reload.Redis.Addr != "" {
		client := transport.NewRedisClient(cfg.Reload.Redis.Addr, cfg.Reload.Redis.Password)
		go func() {
			defer client.Close()
			transport.NewRedisWatcher(client, cfg.Reload.Redis.Channel, n).Start(ctx)
		}()
	}

	lg.Info().
		Str("source", source).
		Bool("file", watchFile).
		Bool("sqs", cfg.Reload.SQSQueueURL != "").
		Bool("redis", cfg.Reload.Redis.Addr != "").
		Msg("Hot reload habilitado")
	return nil
}

// notifyOnSignal converte sinais (SIGHUP) em notificações de reload.
func notifyOnSignal(ctx context.Context, n transport.Notifier, sigs ...os.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			log.Info().Msg("Sinal de reload recebido")
			n.Notify()
		}
	}
}
