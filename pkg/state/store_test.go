package state

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_IncrementAndGet(t *testing.T) {
	s := NewStore()

	assert.Equal(t, int64(0), s.GetCount("10.0.0.1", "retry"))
	assert.Equal(t, int64(1), s.Increment("10.0.0.1", "retry"))
	assert.Equal(t, int64(2), s.Increment("10.0.0.1", "retry"))
	assert.Equal(t, int64(2), s.GetCount("10.0.0.1", "retry"))

	// chaves independentes
	assert.Equal(t, int64(1), s.Increment("10.0.0.2", "retry"))
	assert.Equal(t, int64(1), s.Increment("10.0.0.1", "other"))
	assert.Equal(t, 3, s.Len())
}

func TestStore_KeyHasNoCollisionBetweenFields(t *testing.T) {
	s := NewStore()
	s.Increment("ab", "c")
	assert.Equal(t, int64(0), s.GetCount("a", "bc"))
}

func TestStore_ConcurrentSameKey(t *testing.T) {
	s := NewStore(WithShards(4))
	const workers, perWorker = 32, 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s.Increment("client", "endpoint")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), s.GetCount("client", "endpoint"))
}

func TestStore_ConcurrentDistinctKeys(t *testing.T) {
	s := NewStore()
	const keys, perKey = 50, 200

	var wg sync.WaitGroup
	for i := 0; i < keys; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client := fmt.Sprintf("client-%d", i)
			for j := 0; j < perKey; j++ {
				s.Increment(client, "ep")
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < keys; i++ {
		assert.Equal(t, int64(perKey), s.GetCount(fmt.Sprintf("client-%d", i), "ep"))
	}
}

func TestStore_SweepExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var offset atomic.Int64
	clock := func() time.Time { return now.Add(time.Duration(offset.Load())) }

	s := NewStore(WithTTL(time.Minute), WithClock(clock))
	s.Increment("old", "ep")

	offset.Store(int64(50 * time.Second))
	s.Increment("fresh", "ep")

	offset.Store(int64(90 * time.Second))
	removed := s.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, int64(0), s.GetCount("old", "ep"))
	assert.Equal(t, int64(1), s.GetCount("fresh", "ep"))

	snap, ok := s.Get("fresh", "ep")
	require.True(t, ok)
	assert.Equal(t, now.Add(50*time.Second).UnixNano(), snap.LastSeen.UnixNano())
}

func TestStore_SweepDisabledWithoutTTL(t *testing.T) {
	s := NewStore()
	s.Increment("c", "e")
	assert.Equal(t, 0, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.Increment("c", "e")
	s.Reset()
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("c", "e")
	assert.False(t, ok)
}

func TestStore_RunJanitor(t *testing.T) {
	s := NewStore(WithTTL(time.Nanosecond))
	s.Increment("c", "e")

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	go s.RunJanitor(ctx, 5*time.Millisecond, func(removed int) {
		select {
		case swept <- removed:
		default:
		}
	})
	defer cancel()

	select {
	case n := <-swept:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("janitor não executou")
	}
	assert.Equal(t, 0, s.Len())
}
