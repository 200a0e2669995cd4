package state

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const defaultShards = 64

// Key identifica o contador de um cliente em um endpoint.
type Key struct {
	Client   string
	Endpoint string
}

type entry struct {
	count    atomic.Int64
	lastSeen atomic.Int64 // unix nano
}

type shard struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

// Store mapeia (cliente, endpoint) para um contador de requisições.
//
// Incrementos da mesma chave são atômicos; chaves distintas não competem
// por lock exceto na criação da entrada dentro do mesmo shard.
type Store struct {
	shards []*shard
	ttl    time.Duration
	now    func() time.Time
}

// Option customiza o Store.
type Option func(*Store)

// WithTTL remove entradas sem acesso há mais de ttl durante Sweep. Zero desativa.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithShards define a quantidade de shards (mínimo 1).
func WithShards(n int) Option {
	return func(s *Store) {
		if n < 1 {
			n = 1
		}
		s.shards = newShards(n)
	}
}

// WithClock substitui o relógio (testes).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore cria o store vazio.
func NewStore(opts ...Option) *Store {
	s := &Store{shards: newShards(defaultShards), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newShards(n int) []*shard {
	out := make([]*shard, n)
	for i := range out {
		out[i] = &shard{entries: make(map[Key]*entry)}
	}
	return out
}

func (s *Store) shardFor(k Key) *shard {
	h := xxhash.New()
	_, _ = h.WriteString(k.Client)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(k.Endpoint)
	return s.shards[h.Sum64()%uint64(len(s.shards))]
}

// GetCount devolve o contador atual, 0 se a chave nunca foi vista.
func (s *Store) GetCount(client, endpoint string) int64 {
	k := Key{Client: client, Endpoint: endpoint}
	sh := s.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	if e, ok := sh.entries[k]; ok {
		return e.count.Load()
	}
	return 0
}

// Increment cria a entrada se necessário e devolve o novo valor.
func (s *Store) Increment(client, endpoint string) int64 {
	k := Key{Client: client, Endpoint: endpoint}
	sh := s.shardFor(k)
	now := s.now().UnixNano()

	// O incremento acontece sob RLock para que Sweep (Lock) nunca remova
	// uma entrada entre a busca e o Add.
	sh.mu.RLock()
	if e, ok := sh.entries[k]; ok {
		n := e.count.Add(1)
		e.lastSeen.Store(now)
		sh.mu.RUnlock()
		return n
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()
	e, ok := sh.entries[k]
	if !ok {
		e = &entry{}
		sh.entries[k] = e
	}
	n := e.count.Add(1)
	e.lastSeen.Store(now)
	return n
}

// Snapshot é a visão de uma entrada para inspeção.
type Snapshot struct {
	Key      Key
	Count    int64
	LastSeen time.Time
}

// Get devolve o contador e o último acesso da chave.
func (s *Store) Get(client, endpoint string) (Snapshot, bool) {
	k := Key{Client: client, Endpoint: endpoint}
	sh := s.shardFor(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[k]
	if !ok {
		return Snapshot{Key: k}, false
	}
	return Snapshot{Key: k, Count: e.count.Load(), LastSeen: time.Unix(0, e.lastSeen.Load())}, true
}

// Len é o total de entradas.
func (s *Store) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

// Reset apaga todas as entradas.
func (s *Store) Reset() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[Key]*entry)
		sh.mu.Unlock()
	}
}

// Sweep remove entradas expiradas e devolve quantas foram removidas.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl).UnixNano()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.entries {
			if e.lastSeen.Load() < cutoff {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// RunJanitor executa Sweep periodicamente até o contexto ser cancelado.
// onSweep (opcional) recebe a quantidade removida a cada ciclo.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
