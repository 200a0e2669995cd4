package envloader

import (
	"fmt"
	"time"
)

// Runtimes suportados pelo binário do servidor.
const (
	RuntimeLocal  = "local"
	RuntimeLambda = "lambda"
)

// Settings são as configurações de processo lidas do ambiente antes do
// YAML. Flags da linha de comando têm precedência sobre elas.
type Settings struct {
	ConfigPath     string        `env:"CONFIG_FILE_PATH" envDefault:"mock.yaml"`
	Runtime        string        `env:"MOCK_RUNTIME" envDefault:"local"`
	HotReload      bool          `env:"MOCK_HOT_RELOAD" envDefault:"false"`
	ReloadDebounce time.Duration `env:"MOCK_RELOAD_DEBOUNCE"`
	LogLevel       string        `env:"MOCK_LOG_LEVEL"`
}

// LoadSettings lê Settings do ambiente e valida o runtime.
func LoadSettings() (*Settings, error) {
	s := &Settings{}
	if err := Load(s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	switch s.Runtime {
	case RuntimeLocal, RuntimeLambda:
	default:
		return fmt.Errorf("envloader: MOCK_RUNTIME inválido '%s' (use %s ou %s)", s.Runtime, RuntimeLocal, RuntimeLambda)
	}
	if s.ConfigPath == "" {
		return fmt.Errorf("envloader: CONFIG_FILE_PATH vazio")
	}
	return nil
}

// IsLambda indica se o processo deve atender eventos do API Gateway.
func (s *Settings) IsLambda() bool {
	return s.Runtime == RuntimeLambda
}
