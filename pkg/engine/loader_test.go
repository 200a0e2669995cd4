package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockS3Loader struct {
	GetObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func (m *MockS3Loader) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.GetObjectFunc(ctx, params, optFns...)
}

type MockDynamoLoader struct {
	GetItemFunc func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

func (m *MockDynamoLoader) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetItemFunc(ctx, params, optFns...)
}

type MockRedis struct {
	values map[string]string
	addr   string
	db     int
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if v, ok := m.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

const mockYAML = `
server:
  port: 9090
  state_ttl: 30m
logging:
  level: debug
endpoints:
  - name: retry
    method: GET
    path: /retry
    stateful: true
    responses:
      - status: 200
        condition: "request_count > 2"
        body: OK
      - status: 503
        default: true
        delay: 100-500ms
        body:
          error: "Service Unavailable"
          token: "${env.MOCK_TOKEN}"
`

// --- Testes ---

func TestUniversalLoader_Load_Local(t *testing.T) {
	t.Setenv("MOCK_TOKEN", "abc")
	path := filepath.Join(t.TempDir(), "mock.yaml")
	require.NoError(t, os.WriteFile(path, []byte(mockYAML), 0o600))

	for _, source := range []string{path, "file://" + path} {
		cfg, err := NewUniversalLoader().Load(context.Background(), source)
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, config.DefaultHost, cfg.Server.Host)
		assert.Equal(t, 30*time.Minute, cfg.Server.GetStateTTL())
		assert.Equal(t, "debug", cfg.Logging.Level)
		require.Len(t, cfg.Endpoints, 1)

		def := cfg.Endpoints[0].Responses[1]
		assert.Equal(t, config.Delay{Min: 100 * time.Millisecond, Max: 500 * time.Millisecond}, *def.Delay)
		assert.JSONEq(t, `{"error":"Service Unavailable","token":"abc"}`, string(def.Body))
	}
}

func TestUniversalLoader_Load_Invalid(t *testing.T) {
	ul := NewUniversalLoader()

	_, err := ul.Parse(context.Background(), []byte("endpoints: [nao fecha"))
	assert.True(t, config.IsValidationError(err), "YAML malformado deve ser erro de validação")

	_, err = ul.Parse(context.Background(), []byte(`
endpoints:
  - name: a
    method: BREW
    path: /a
    responses: [{status: 200}]
`))
	assert.True(t, config.IsValidationError(err))
	assert.Contains(t, err.Error(), "BREW")

	_, err = ul.Load(context.Background(), filepath.Join(t.TempDir(), "nao-existe.yaml"))
	assert.Error(t, err)
	assert.False(t, config.IsValidationError(err))
}

func TestUniversalLoader_S3(t *testing.T) {
	mockClient := &MockS3Loader{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			if *params.Bucket != "my-bucket" || *params.Key != "configs/mock.yaml" {
				return nil, errors.New("NoSuchKey")
			}
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(mockYAML)),
			}, nil
		},
	}

	loader := NewUniversalLoader(WithS3Client(mockClient))
	cfg, err := loader.Load(context.Background(), "s3://my-bucket/configs/mock.yaml")
	require.NoError(t, err)
	assert.Equal(t, "retry", cfg.Endpoints[0].Name)

	_, err = loader.Load(context.Background(), "s3://my-bucket/outro.yaml")
	assert.Error(t, err)
}

func TestUniversalLoader_Dynamo_Internal(t *testing.T) {
	mockClient := &MockDynamoLoader{
		GetItemFunc: func(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			assert.Equal(t, "ConfigTable", *params.TableName)
			key := params.Key["MockName"].(*types.AttributeValueMemberS).Value
			assert.Equal(t, "my-mock", key)

			return &dynamodb.GetItemOutput{
				Item: map[string]types.AttributeValue{
					"yaml_body": &types.AttributeValueMemberS{Value: `endpoints: []`},
				},
			}, nil
		},
	}

	loader := NewUniversalLoader()
	uri := "dynamodb://ConfigTable/my-mock?pk=MockName&col=yaml_body"

	data, err := loader.loadFromDynamoDBInternal(context.Background(), mockClient, uri)
	require.NoError(t, err)
	assert.Equal(t, `endpoints: []`, string(data))

	_, err = loader.loadFromDynamoDBInternal(context.Background(), mockClient, "dynamodb://ConfigTable/my-mock?pk=MockName&col=outra")
	assert.ErrorContains(t, err, "coluna 'outra'")
}

func TestUniversalLoader_Redis(t *testing.T) {
	fake := &MockRedis{values: map[string]string{"mocks:dev": mockYAML}}
	loader := NewUniversalLoader(WithRedisClient(func(addr, password string, db int) RedisGetter {
		fake.addr, fake.db = addr, db
		return fake
	}))

	cfg, err := loader.Load(context.Background(), "redis://:senha@cache:6379/mocks:dev?db=2")
	require.NoError(t, err)
	assert.Len(t, cfg.Endpoints, 1)
	assert.Equal(t, "cache:6379", fake.addr)
	assert.Equal(t, 2, fake.db)

	_, err = loader.Load(context.Background(), "redis://cache:6379/ausente")
	assert.ErrorContains(t, err, "não encontrada")

	_, err = loader.Load(context.Background(), "redis://cache:6379/")
	assert.ErrorContains(t, err, "sem chave")
}

func TestIsLocalSource(t *testing.T) {
	assert.True(t, IsLocalSource("mock.yaml"))
	assert.True(t, IsLocalSource("file:///etc/mock.yaml"))
	assert.False(t, IsLocalSource("s3://b/k"))
	assert.Equal(t, "/etc/mock.yaml", FilePath("file:///etc/mock.yaml"))
}
