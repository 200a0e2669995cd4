package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/rs/zerolog"
)

// Configure inicializa o logger global baseando-se na configuração do YAML.
func Configure(cfg config.LoggingConf) zerolog.Logger {
	return ConfigureWriter(cfg, os.Stdout)
}

// ConfigureWriter é Configure com destino explícito.
func ConfigureWriter(cfg config.LoggingConf, out io.Writer) zerolog.Logger {
	// Define o nível de log (default: info)
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// JSON para produção, console legível para uso local
	var output io.Writer = out
	if !cfg.IsEnabled() {
		output = io.Discard
	} else if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", config.DefaultServiceName).
		Logger()
}
