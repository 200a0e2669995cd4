package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func (f *fakeTarget) Reload(ctx context.Context) error {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.err
}

func runReloader(t *testing.T, h *HotReloader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestHotReloader_DebounceCoalesces(t *testing.T) {
	target := &fakeTarget{}
	results := make(chan error, 10)
	h := NewHotReloader(target, 50*time.Millisecond, WithReloadHook(func(err error) { results <- err }))
	runReloader(t, h)

	for i := 0; i < 10; i++ {
		h.Notify()
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case err := <-results:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload não executado")
	}
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), target.calls.Load())
	assert.Equal(t, StateIdle, h.State())
}

func TestHotReloader_NotifyDuringLoadingRunsOnceMore(t *testing.T) {
	target := &fakeTarget{block: make(chan struct{}), started: make(chan struct{}, 10)}
	results := make(chan error, 10)
	h := NewHotReloader(target, 0, WithReloadHook(func(err error) { results <- err }))
	runReloader(t, h)

	h.Notify()
	<-target.started
	assert.Equal(t, StateLoading, h.State())

	// várias notificações durante o reload viram uma única nova checagem
	for i := 0; i < 5; i++ {
		h.Notify()
	}
	target.block <- struct{}{}
	<-results

	<-target.started
	target.block <- struct{}{}
	<-results

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), target.calls.Load())
}

func TestHotReloader_FailureReported(t *testing.T) {
	target := &fakeTarget{err: errors.New("yaml inválido")}
	results := make(chan error, 1)
	h := NewHotReloader(target, 0, WithReloadHook(func(err error) { results <- err }))
	runReloader(t, h)

	h.Notify()
	select {
	case err := <-results:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reload não executado")
	}
	assert.Equal(t, StateIdle, h.State())
}

func TestHotReloader_NotifyNeverBlocks(t *testing.T) {
	h := NewHotReloader(&fakeTarget{}, time.Hour)
	for i := 0; i < 100; i++ {
		h.Notify()
	}
	assert.Equal(t, "idle", h.State().String())
}
