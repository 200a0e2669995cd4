//go:build !windows

package main

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingNotifier struct{ calls chan struct{} }

func (c *countingNotifier) Notify() { c.calls <- struct{}{} }

func TestNotifyOnSignal(t *testing.T) {
	n := &countingNotifier{calls: make(chan struct{}, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notifyOnSignal(ctx, n, syscall.SIGUSR1)
	// aguarda o registro do handler antes de enviar o sinal
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	select {
	case <-n.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("sinal não gerou notificação")
	}
}
