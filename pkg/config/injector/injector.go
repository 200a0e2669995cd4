// Package injector resolve placeholders ${fonte.chave} em estruturas de
// configuração antes da validação.
package injector

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"
)

// Ex: ${env.API_KEY}, ${ssm./mock/token}, ${secret.mock-db.password}
var pattern = regexp.MustCompile(`\$\{([a-z]+)\.([^}]+)\}`)

// Resolver busca o valor de uma chave em uma fonte externa.
type Resolver interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// ResolverFunc adapta uma função comum a Resolver.
type ResolverFunc func(ctx context.Context, key string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, key string) (string, error) {
	return f(ctx, key)
}

// EnvResolver lê variáveis de ambiente; ausentes viram string vazia.
var EnvResolver = ResolverFunc(func(_ context.Context, key string) (string, error) {
	return os.Getenv(key), nil
})

type Injector struct {
	resolvers map[string]Resolver
}

type Option func(*Injector)

// WithResolver registra (ou substitui) a fonte identificada por prefix.
func WithResolver(prefix string, r Resolver) Option {
	return func(i *Injector) {
		i.resolvers[prefix] = r
	}
}

// New cria um injector com env, ssm e secret registrados. As fontes AWS só
// carregam credenciais quando usadas pela primeira vez.
func New(opts ...Option) *Injector {
	i := &Injector{resolvers: map[string]Resolver{
		"env":    EnvResolver,
		"ssm":    NewSSMResolver(nil),
		"secret": NewSecretsResolver(nil),
	}}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inject percorre target (ponteiro para struct) substituindo tags env e
// placeholders em strings, mapas, slices e ponteiros.
func (i *Injector) Inject(ctx context.Context, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target deve ser um ponteiro para struct não nulo")
	}
	return i.injectRecursive(ctx, v.Elem())
}

func (i *Injector) injectRecursive(ctx context.Context, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		for k := 0; k < t.NumField(); k++ {
			field := t.Field(k)
			value := v.Field(k)
			if !field.IsExported() {
				continue
			}

			// 1. Tags (env:"...")
			if tag := field.Tag.Get("env"); tag != "" && value.Kind() == reflect.String && value.CanSet() {
				if val, ok := os.LookupEnv(tag); ok {
					value.SetString(val)
					continue
				}
			}

			// 2. Recursão (strings incluídas)
			if err := i.injectRecursive(ctx, value); err != nil {
				return fmt.Errorf("%s: %w", field.Name, err)
			}
		}

	case reflect.String:
		if !v.CanSet() {
			return nil
		}
		newValue, err := i.Interpolate(ctx, v.String())
		if err != nil {
			return err
		}
		v.SetString(newValue)

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String {
			return nil
		}
		return i.injectMap(ctx, v)

	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			return i.injectRecursive(ctx, v.Elem())
		}

	case reflect.Slice:
		for j := 0; j < v.Len(); j++ {
			if err := i.injectRecursive(ctx, v.Index(j)); err != nil {
				return err
			}
		}
	}
	return nil
}

// injectMap trata mapas de string e mapas dinâmicos vindos do YAML.
func (i *Injector) injectMap(ctx context.Context, v reflect.Value) error {
	iter := v.MapRange()
	updates := make(map[string]reflect.Value)

	for iter.Next() {
		elem := iter.Value()
		if elem.Kind() == reflect.Interface {
			elem = elem.Elem()
		}
		if !elem.IsValid() {
			continue
		}

		switch elem.Kind() {
		case reflect.String:
			newVal, err := i.Interpolate(ctx, elem.String())
			if err != nil {
				return fmt.Errorf("chave '%s': %w", iter.Key().String(), err)
			}
			updates[iter.Key().String()] = mapValue(v.Type().Elem(), newVal)
		case reflect.Map:
			if err := i.injectMap(ctx, elem); err != nil {
				return err
			}
		}
	}

	for k, val := range updates {
		v.SetMapIndex(reflect.ValueOf(k).Convert(v.Type().Key()), val)
	}
	return nil
}

// Interpolate substitui todos os placeholders de input. Fontes desconhecidas
// são mantidas literalmente.
func (i *Injector) Interpolate(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${") {
		return input, nil
	}

	var err error
	result := pattern.ReplaceAllStringFunc(input, func(match string) string {
		if err != nil {
			return match
		}
		groups := pattern.FindStringSubmatch(match)
		resolver, ok := i.resolvers[groups[1]]
		if !ok {
			return match
		}
		val, resolveErr := resolver.Resolve(ctx, groups[2])
		if resolveErr != nil {
			err = fmt.Errorf("falha ao resolver '%s': %w", match, resolveErr)
			return match
		}
		return val
	})

	return result, err
}

func mapValue(elemType reflect.Type, val string) reflect.Value {
	if elemType.Kind() == reflect.String {
		return reflect.ValueOf(val).Convert(elemType)
	}
	return reflect.ValueOf(val)
}
