package transport

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisWatcher_StopsWhenSubscribeFails(t *testing.T) {
	// porta fechada: a assinatura falha e Start retorna sem notificar
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer client.Close()

	notifier := &countingNotifier{}
	rw := NewRedisWatcher(client, "mock-reload", notifier)

	done := make(chan struct{})
	go func() {
		rw.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher Redis não retornou após falha de conexão")
	}
	assert.Zero(t, notifier.calls.Load())
}
