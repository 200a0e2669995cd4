package injector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Interfaces para abstrair o SDK da AWS (permite mocking)
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var (
	awsCfg  aws.Config
	awsOnce sync.Once
	awsErr  error
)

// AWSConfig carrega a configuração da AWS (env vars, profile, IAM role) de forma lazy-singleton.
func AWSConfig(ctx context.Context) (aws.Config, error) {
	awsOnce.Do(func() {
		var opts []func(*awsconfig.LoadOptions) error
		if region := os.Getenv("AWS_REGION"); region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		awsCfg, awsErr = awsconfig.LoadDefaultConfig(ctx, opts...)
	})
	return awsCfg, awsErr
}

// SSMResolver lê parâmetros (com decrypt) do Parameter Store.
type SSMResolver struct {
	mu     sync.Mutex
	client SSMClient
}

// NewSSMResolver usa client quando informado; nil cria o client real no primeiro uso.
func NewSSMResolver(client SSMClient) *SSMResolver {
	return &SSMResolver{client: client}
}

func (r *SSMResolver) Resolve(ctx context.Context, key string) (string, error) {
	client, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}

	decrypt := true
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &key,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("erro no SSM GetParameter: %w", err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parâmetro '%s' sem valor", key)
	}
	return *out.Parameter.Value, nil
}

func (r *SSMResolver) getClient(ctx context.Context) (SSMClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		cfg, err := AWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("falha ao carregar config AWS: %w", err)
		}
		r.client = ssm.NewFromConfig(cfg)
	}
	return r.client, nil
}

// SecretsResolver lê segredos do Secrets Manager. A chave "id.campo" extrai
// um campo de um segredo JSON; o caminho inteiro é tentado primeiro.
type SecretsResolver struct {
	mu     sync.Mutex
	client SecretsClient
}

func NewSecretsResolver(client SecretsClient) *SecretsResolver {
	return &SecretsResolver{client: client}
}

func (r *SecretsResolver) Resolve(ctx context.Context, key string) (string, error) {
	client, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}

	val, err := getSecret(ctx, client, key)
	if err == nil {
		return val, nil
	}

	idx := strings.LastIndex(key, ".")
	if idx <= 0 {
		return "", err
	}
	raw, innerErr := getSecret(ctx, client, key[:idx])
	if innerErr != nil {
		return "", err
	}

	var data map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(raw), &data); jsonErr != nil {
		return "", fmt.Errorf("segredo '%s' não é JSON: %w", key[:idx], jsonErr)
	}
	field, ok := data[key[idx+1:]]
	if !ok {
		return "", fmt.Errorf("campo '%s' ausente no segredo '%s'", key[idx+1:], key[:idx])
	}
	return fmt.Sprintf("%v", field), nil
}

func (r *SecretsResolver) getClient(ctx context.Context) (SecretsClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		cfg, err := AWSConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("falha ao carregar config AWS: %w", err)
		}
		r.client = secretsmanager.NewFromConfig(cfg)
	}
	return r.client, nil
}

func getSecret(ctx context.Context, client SecretsClient, secretID string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretID,
	})
	if err != nil {
		return "", fmt.Errorf("erro no SecretsManager: %w", err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("segredo '%s' sem SecretString", secretID)
	}
	return *out.SecretString, nil
}
