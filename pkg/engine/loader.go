package engine

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	localConfig "github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/config/injector"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// --- Interfaces para Mocking ---

type S3Downloader interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type DynamoGetter interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type RedisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// UniversalLoader suporta múltiplas fontes de configuração (local, S3, DynamoDB, Redis).
type UniversalLoader struct {
	validator *localConfig.ConfigValidator
	injector  *injector.Injector

	s3Client     S3Downloader
	dynamoClient DynamoGetter
	redisClient  func(addr, password string, db int) RedisGetter
}

type LoaderOption func(*UniversalLoader)

func WithS3Client(c S3Downloader) LoaderOption {
	return func(ul *UniversalLoader) { ul.s3Client = c }
}

func WithDynamoClient(c DynamoGetter) LoaderOption {
	return func(ul *UniversalLoader) { ul.dynamoClient = c }
}

// WithRedisClient substitui a criação do cliente Redis por endereço.
func WithRedisClient(factory func(addr, password string, db int) RedisGetter) LoaderOption {
	return func(ul *UniversalLoader) { ul.redisClient = factory }
}

func WithInjector(inj *injector.Injector) LoaderOption {
	return func(ul *UniversalLoader) { ul.injector = inj }
}

// NewUniversalLoader cria uma nova instância.
func NewUniversalLoader(opts ...LoaderOption) *UniversalLoader {
	ul := &UniversalLoader{
		validator: localConfig.NewValidator(),
		injector:  injector.New(),
	}
	for _, opt := range opts {
		opt(ul)
	}
	return ul
}

// Load detecta o esquema da fonte e carrega a configuração.
func (ul *UniversalLoader) Load(ctx context.Context, source string) (*localConfig.MockConfig, error) {
	rawData, err := ul.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("falha leitura config (%s): %w", source, err)
	}
	return ul.Parse(ctx, rawData)
}

// Fetch devolve o conteúdo bruto da fonte.
func (ul *UniversalLoader) Fetch(ctx context.Context, source string) ([]byte, error) {
	switch {
	case strings.HasPrefix(source, "s3://"):
		client := ul.s3Client
		if client == nil {
			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, err
			}
			client = s3.NewFromConfig(cfg)
		}
		return ul.loadFromS3Internal(ctx, client, source)

	case strings.HasPrefix(source, "dynamodb://"):
		client := ul.dynamoClient
		if client == nil {
			cfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, err
			}
			client = dynamodb.NewFromConfig(cfg)
		}
		return ul.loadFromDynamoDBInternal(ctx, client, source)

	case strings.HasPrefix(source, "redis://"):
		return ul.loadFromRedis(ctx, source)

	default:
		return ul.loadFromFile(source)
	}
}

// --- Estratégias de carregamento (métodos internos testáveis) ---

func (ul *UniversalLoader) loadFromFile(path string) ([]byte, error) {
	// Suporta tanto "file://config.yaml" quanto apenas "config.yaml"
	return os.ReadFile(FilePath(path))
}

// FilePath remove o prefixo file:// de uma fonte local.
func FilePath(source string) string {
	return strings.TrimPrefix(source, "file://")
}

// IsLocalSource indica se a fonte é um arquivo (e pode ser observada).
func IsLocalSource(source string) bool {
	return !strings.Contains(source, "://") || strings.HasPrefix(source, "file://")
}

func (ul *UniversalLoader) loadFromS3Internal(ctx context.Context, client S3Downloader, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL S3 inválida: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (ul *UniversalLoader) loadFromDynamoDBInternal(ctx context.Context, client DynamoGetter, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL DynamoDB inválida: %w", err)
	}

	tableName := u.Host
	pkValue := strings.TrimPrefix(u.Path, "/")

	// Query params opcionais: dynamodb://tabela/chave?col=dado&pk=MockId
	colName := u.Query().Get("col")
	if colName == "" {
		colName = "config" // coluna padrão onde o YAML está salvo
	}

	pkName := u.Query().Get("pk")
	if pkName == "" {
		pkName = "id" // nome padrão da partition key
	}

	keyMap := map[string]types.AttributeValue{
		pkName: &types.AttributeValueMemberS{Value: pkValue},
	}

	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &tableName,
		Key:       keyMap,
	})
	if err != nil {
		return nil, err
	}

	if out.Item == nil {
		return nil, fmt.Errorf("item não encontrado no DynamoDB")
	}

	var itemMap map[string]interface{}
	if err := attributevalue.UnmarshalMap(out.Item, &itemMap); err != nil {
		return nil, err
	}

	content, ok := itemMap[colName].(string)
	if !ok {
		return nil, fmt.Errorf("coluna '%s' inválida ou vazia no DynamoDB", colName)
	}

	return []byte(content), nil
}

// loadFromRedis lê redis://[:senha@]host:porta/chave[?db=N].
func (ul *UniversalLoader) loadFromRedis(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("URL Redis inválida: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, fmt.Errorf("URL Redis sem chave: %s", uri)
	}
	password, _ := u.User.Password()
	db := 0
	if raw := u.Query().Get("db"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("db Redis inválido '%s'", raw)
		}
		db = n
	}

	var client RedisGetter
	if ul.redisClient != nil {
		client = ul.redisClient(u.Host, password, db)
	} else {
		rc := redis.NewClient(&redis.Options{Addr: u.Host, Password: password, DB: db})
		defer rc.Close()
		client = rc
	}

	val, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("chave '%s' não encontrada no Redis", key)
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// Parse decodifica, injeta valores externos, aplica defaults e valida.
func (ul *UniversalLoader) Parse(ctx context.Context, data []byte) (*localConfig.MockConfig, error) {
	var cfg localConfig.MockConfig

	// 1. Unmarshal (YAML -> Struct)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &localConfig.ValidationError{Problems: []string{fmt.Sprintf("YAML malformado: %v", err)}}
	}

	// 2. Injection (env/secret/ssm)
	if ul.injector != nil {
		if err := ul.injector.Inject(ctx, &cfg); err != nil {
			return nil, fmt.Errorf("falha na injeção de variáveis: %w", err)
		}
	}

	cfg.ApplyDefaults()

	// 3. Validation
	if ul.validator != nil {
		if err := ul.validator.Validate(&cfg); err != nil {
			return nil, fmt.Errorf("validação da configuração falhou: %w", err)
		}
	}

	return &cfg, nil
}
