package params

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Provider serves parameter snapshots from a directory and can reload it.
//
// The current store is swapped atomically. A reload never affects an
// evaluation that already took its snapshot, and a failed reload keeps the
// previous store.
type Provider struct {
	path   string
	logger *slog.Logger

	store    atomic.Pointer[Store]
	loadedAt atomic.Int64

	mu        sync.Mutex
	listeners []func(err error)
}

// NewProvider loads path (a file or directory) and returns a provider for it.
func NewProvider(path string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provider{
		path:   path,
		logger: logger.With("component", "params.provider"),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewStaticProvider wraps an already built store. Reload is a no-op.
func NewStaticProvider(store *Store) *Provider {
	p := &Provider{logger: slog.Default().With("component", "params.provider")}
	p.store.Store(store)
	p.loadedAt.Store(time.Now().UnixNano())
	return p
}

// Path returns the watched path, empty for static providers.
func (p *Provider) Path() string { return p.path }

// Store returns the current store.
func (p *Provider) Store() *Store { return p.store.Load() }

// At returns the snapshot of the current store at date.
func (p *Provider) At(date time.Time) *Set { return p.Store().At(date) }

// LoadedAt returns when the current store was loaded.
func (p *Provider) LoadedAt() time.Time { return time.Unix(0, p.loadedAt.Load()) }

// OnReload registers a callback invoked after every reload attempt with its
// result.
func (p *Provider) OnReload(fn func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Reload re-reads the parameter path and swaps the store on success.
func (p *Provider) Reload() error {
	if p.path == "" {
		return nil
	}

	start := time.Now()
	store, err := LoadDir(p.path)
	if err == nil {
		p.store.Store(store)
		p.loadedAt.Store(time.Now().UnixNano())
		p.logger.Info("parameters loaded",
			"path", p.path,
			"parameters", store.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else if p.store.Load() != nil {
		p.logger.Error("parameter reload failed, keeping previous values",
			"path", p.path,
			"error", err,
		)
	}

	p.mu.Lock()
	listeners := append([]func(error){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(err)
	}
	return err
}
