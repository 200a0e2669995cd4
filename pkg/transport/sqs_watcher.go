package transport

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SQSClient define a interface necessária para o watcher (permite Mocking)
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSWatcher converte mensagens de uma fila SQS em notificações de reload.
// O conteúdo da mensagem é ignorado: toda mensagem significa "configuração
// alterada".
type SQSWatcher struct {
	client     SQSClient
	queueUrl   string
	notifier   Notifier
	logger     zerolog.Logger
	retryDelay time.Duration
	waitTime   int32
}

type SQSOption func(*SQSWatcher)

// WithSQSRetryDelay define a espera após erro no ReceiveMessage.
func WithSQSRetryDelay(d time.Duration) SQSOption {
	return func(s *SQSWatcher) { s.retryDelay = d }
}

// WithSQSWaitTime define o long polling em segundos.
func WithSQSWaitTime(seconds int32) SQSOption {
	return func(s *SQSWatcher) { s.waitTime = seconds }
}

// NewSQSWatcher cria uma nova instância do watcher
func NewSQSWatcher(client SQSClient, queueUrl string, notifier Notifier, opts ...SQSOption) *SQSWatcher {
	s := &SQSWatcher{
		client:     client,
		queueUrl:   queueUrl,
		notifier:   notifier,
		logger:     log.With().Str("component", "sqs_watcher").Logger(),
		retryDelay: 5 * time.Second,
		waitTime:   20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start inicia o monitoramento (bloqueante)
func (s *SQSWatcher) Start(ctx context.Context) {
	if s.queueUrl == "" {
		s.logger.Warn().Msg("URL da fila SQS não configurada. Notificações via SQS desativadas.")
		return
	}

	s.logger.Info().Str("queue", s.queueUrl).Msg("Monitorando fila SQS para Hot Reload")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Parando monitoramento SQS")
			return
		default:
		}

		out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(s.queueUrl),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     s.waitTime,
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("Erro no SQS. Retentando...")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
			continue
		}

		if len(out.Messages) == 0 {
			continue
		}

		// várias mensagens no mesmo lote viram uma única notificação
		s.logger.Info().Int("messages", len(out.Messages)).Msg("Evento de alteração recebido via SQS")
		s.notifier.Notify()

		for _, msg := range out.Messages {
			if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(s.queueUrl),
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				s.logger.Warn().Err(err).Msg("Falha ao remover mensagem da fila")
			}
		}
	}
}
