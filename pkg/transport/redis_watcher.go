package transport

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Subscriber é o subconjunto do cliente Redis usado pelo RedisWatcher.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisWatcher converte mensagens publicadas em um canal Redis em
// notificações de reload.
type RedisWatcher struct {
	client   Subscriber
	channel  string
	notifier Notifier
	logger   zerolog.Logger
}

func NewRedisWatcher(client Subscriber, channel string, notifier Notifier) *RedisWatcher {
	return &RedisWatcher{
		client:   client,
		channel:  channel,
		notifier: notifier,
		logger:   log.With().Str("component", "redis_watcher").Str("channel", channel).Logger(),
	}
}

// NewRedisClient cria o cliente usado pelo watcher a partir de addr/password.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

// Start bloqueia até ctx ser cancelado. O go-redis reconecta a assinatura
// sozinho após quedas de conexão.
func (rw *RedisWatcher) Start(ctx context.Context) {
	pubsub := rw.client.Subscribe(ctx, rw.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			rw.logger.Error().Err(err).Msg("Falha ao assinar canal Redis")
		}
		return
	}
	rw.logger.Info().Msg("Monitorando canal Redis para Hot Reload")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			rw.logger.Info().Str("payload", msg.Payload).Msg("Evento de alteração recebido via Redis")
			rw.notifier.Notify()
		}
	}
}
