package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Delay é um atraso fixo (Min == Max) ou um intervalo [Min, Max).
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// IsRange indica se o atraso é sorteado.
func (d Delay) IsRange() bool {
	return d.Max != d.Min
}

func (d Delay) String() string {
	if !d.IsRange() {
		return d.Min.String()
	}
	return fmt.Sprintf("%s-%s", d.Min, d.Max)
}

// ParseDelay aceita "250ms", "2s", "150" (ms), "100-500ms" e "100ms-1s".
func ParseDelay(raw string) (Delay, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Delay{}, fmt.Errorf("delay vazio")
	}

	parts := strings.Split(s, "-")
	switch len(parts) {
	case 1:
		d, err := parseDelayDuration(parts[0], "ms")
		if err != nil {
			return Delay{}, err
		}
		return Delay{Min: d, Max: d}, nil

	case 2:
		maxRaw := strings.TrimSpace(parts[1])
		// "100-500ms": o limite inferior herda a unidade do superior
		unit := strings.TrimLeft(maxRaw, "0123456789.")
		if unit == "" {
			unit = "ms"
		}
		minD, err := parseDelayDuration(parts[0], unit)
		if err != nil {
			return Delay{}, err
		}
		maxD, err := parseDelayDuration(maxRaw, "ms")
		if err != nil {
			return Delay{}, err
		}
		return Delay{Min: minD, Max: maxD}, nil

	default:
		return Delay{}, fmt.Errorf("formato de delay inválido: '%s'", raw)
	}
}

func parseDelayDuration(raw, defaultUnit string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("duração vazia")
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		s += defaultUnit
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("duração inválida '%s': %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duração negativa '%s'", raw)
	}
	return d, nil
}

// UnmarshalYAML aceita escalar, sequência [min, max] ou mapa {min, max}.
func (d *Delay) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseDelay(node.Value)
		if err != nil {
			return fmt.Errorf("linha %d: %w", node.Line, err)
		}
		*d = parsed
		return nil

	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("linha %d: delay em lista deve ter [min, max]", node.Line)
		}
		return d.fromBounds(node.Line, node.Content[0].Value, node.Content[1].Value)

	case yaml.MappingNode:
		var bounds struct {
			Min string `yaml:"min"`
			Max string `yaml:"max"`
		}
		if err := node.Decode(&bounds); err != nil {
			return err
		}
		if bounds.Max == "" {
			bounds.Max = bounds.Min
		}
		return d.fromBounds(node.Line, bounds.Min, bounds.Max)
	}
	return fmt.Errorf("linha %d: delay com formato não suportado", node.Line)
}

func (d *Delay) fromBounds(line int, minRaw, maxRaw string) error {
	minD, err := parseDelayDuration(minRaw, "ms")
	if err != nil {
		return fmt.Errorf("linha %d: %w", line, err)
	}
	maxD, err := parseDelayDuration(maxRaw, "ms")
	if err != nil {
		return fmt.Errorf("linha %d: %w", line, err)
	}
	d.Min, d.Max = minD, maxD
	return nil
}

// MarshalYAML mantém o formato textual aceito por ParseDelay.
func (d Delay) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
