package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ReloadState é o estado do HotReloader.
type ReloadState int32

const (
	StateIdle ReloadState = iota
	StateLoading
)

func (s ReloadState) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "idle"
}

// HotReloader serializa os reloads de um alvo. Notificações que chegam
// durante o debounce ou durante um reload são fundidas em uma única nova
// checagem.
type HotReloader struct {
	target   Reloadable
	debounce time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	onResult func(error)

	pending chan struct{}
	state   atomic.Int32
}

type ReloaderOption func(*HotReloader)

// WithReloadHook recebe o resultado de cada tentativa (nil em sucesso).
func WithReloadHook(fn func(error)) ReloaderOption {
	return func(h *HotReloader) { h.onResult = fn }
}

// WithReloadTimeout limita a duração de cada tentativa.
func WithReloadTimeout(d time.Duration) ReloaderOption {
	return func(h *HotReloader) { h.timeout = d }
}

func WithReloaderLogger(l zerolog.Logger) ReloaderOption {
	return func(h *HotReloader) { h.logger = l }
}

func NewHotReloader(target Reloadable, debounce time.Duration, opts ...ReloaderOption) *HotReloader {
	h := &HotReloader{
		target:   target,
		debounce: debounce,
		timeout:  30 * time.Second,
		logger:   zerolog.Nop(),
		pending:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With().Str("component", "reloader").Logger()
	return h
}

// Notify sinaliza que a fonte mudou. Nunca bloqueia.
func (h *HotReloader) Notify() {
	select {
	case h.pending <- struct{}{}:
	default:
		// já existe uma checagem pendente
	}
}

func (h *HotReloader) State() ReloadState {
	return ReloadState(h.state.Load())
}

// Run processa notificações até ctx ser cancelado.
func (h *HotReloader) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.pending:
		}

		if !h.settle(ctx) {
			return
		}
		h.reload(ctx)
	}
}

// settle espera a fonte ficar quieta por debounce, absorvendo notificações.
func (h *HotReloader) settle(ctx context.Context) bool {
	if h.debounce <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(h.debounce)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-h.pending:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(h.debounce)
		case <-timer.C:
			return true
		}
	}
}

func (h *HotReloader) reload(ctx context.Context) {
	h.state.Store(int32(StateLoading))

	rctx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.target.Reload(rctx)
	cancel()

	h.state.Store(int32(StateIdle))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Reload falhou, configuração anterior mantida")
	}
	if h.onResult != nil {
		h.onResult(err)
	}
}
