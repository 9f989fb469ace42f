package storefront

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	sf       *Storefront
	lastSeen time.Time
}

// Registry maps session ids to storefronts, building them on first use and
// evicting those idle for longer than the configured period. Evicted
// sessions lose nothing: their cart and credential live in the store.
type Registry struct {
	deps    Deps
	idle    time.Duration
	logger  *slog.Logger
	nowFunc func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	stop    chan struct{}
	done    chan struct{}
	running bool
	once    sync.Once
}

// NewRegistry creates a registry. Call Run to start eviction.
func NewRegistry(deps Deps, idle time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		deps:    deps,
		idle:    idle,
		logger:  logger,
		nowFunc: time.Now,
		entries: make(map[string]*entry),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Get returns the storefront for sessionID, creating it if needed. The
// cart is loaded outside the registry lock; when two requests race to
// create the same session, the first one inserted wins.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Storefront, error) {
	if sf := r.lookup(sessionID); sf != nil {
		return sf, nil
	}

	sf, err := open(ctx, sessionID, r.deps)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if e, ok := r.entries[sessionID]; ok {
		e.lastSeen = r.nowFunc()
		r.mu.Unlock()
		return e.sf, nil
	}
	r.entries[sessionID] = &entry{sf: sf, lastSeen: r.nowFunc()}
	activeSessions.Set(float64(len(r.entries)))
	sf.gate.Rehydrate(ctx)
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "storefront session created", slog.String("session_id", sessionID))
	return sf, nil
}

func (r *Registry) lookup(sessionID string) *Storefront {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[sessionID]; ok {
		e.lastSeen = r.nowFunc()
		return e.sf
	}
	return nil
}

// Rotate moves sf to a freshly generated session id and returns it. The
// stored cart and credential follow; the old id no longer resolves to sf.
func (r *Registry) Rotate(ctx context.Context, sf *Storefront) string {
	newID := uuid.NewString()
	moveCtx, cancel := r.deps.detached(ctx)
	oldID := sf.rebind(moveCtx, newID)
	cancel()

	r.mu.Lock()
	if e, ok := r.entries[oldID]; ok && e.sf == sf {
		delete(r.entries, oldID)
	}
	r.entries[newID] = &entry{sf: sf, lastSeen: r.nowFunc()}
	activeSessions.Set(float64(len(r.entries)))
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "session id rotated", slog.String("session_id", newID))
	return newID
}

// Len returns the number of sessions in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts idle sessions and returns how many it removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	evicted := 0
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.idle {
			delete(r.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		sessionsEvicted.Add(float64(evicted))
		activeSessions.Set(float64(len(r.entries)))
		r.logger.Debug("evicted idle storefront sessions", slog.Int("count", evicted))
	}
	return evicted
}

// Run sweeps every interval until Close is called. Only the first call
// starts a sweeper.
func (r *Registry) Run(interval time.Duration) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops the sweeper started by Run and waits for it to exit.
func (r *Registry) Close() {
	r.once.Do(func() {
		close(r.stop)
		r.mu.Lock()
		running := r.running
		r.mu.Unlock()
		if running {
			<-r.done
		}
	})
}
