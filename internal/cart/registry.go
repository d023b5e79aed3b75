package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"kiddeo/internal/logger"
)

type registryKey struct {
	city   string
	device string
}

// Registry keeps one Manager per (city, device). The signed-in user is
// tracked by the manager itself so that owner changes go through SetUser.
type Registry struct {
	remote RemoteStore
	local  LocalStore
	cfg    Config
	log    logger.Logger

	mu       sync.Mutex
	managers map[registryKey]*Manager
}

func NewRegistry(remote RemoteStore, local LocalStore, cfg Config, log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		remote:   remote,
		local:    local,
		cfg:      cfg,
		log:      log,
		managers: make(map[registryKey]*Manager),
	}
}

// Get returns the loaded manager for the device's cart in city, moved to
// userID if the owner changed since the last request.
func (r *Registry) Get(ctx context.Context, city, deviceID, userID string) *Manager {
	key := registryKey{city: city, device: deviceID}

	r.mu.Lock()
	m, ok := r.managers[key]
	if !ok {
		m = NewManager(Scope{City: city, DeviceID: deviceID, UserID: userID}, r.remote, r.local, r.cfg, r.log)
		r.managers[key] = m
	}
	r.mu.Unlock()

	m.SetUser(ctx, userID)
	m.Load(ctx)
	return m
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

// Sweep closes and forgets managers unused for longer than idle.
func (r *Registry) Sweep(ctx context.Context, idle time.Duration) int {
	cutoff := time.Now().Add(-idle)

	r.mu.Lock()
	var stale []*Manager
	for key, m := range r.managers {
		if m.IdleSince().Before(cutoff) {
			stale = append(stale, m)
			delete(r.managers, key)
		}
	}
	r.mu.Unlock()

	for _, m := range stale {
		if err := m.Close(ctx); err != nil {
			r.log.Warn("failed to flush idle cart", "error", err)
		}
	}
	return len(stale)
}

// Close flushes every cart.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		managers = append(managers, m)
	}
	r.managers = make(map[registryKey]*Manager)
	r.mu.Unlock()

	var errs []error
	for _, m := range managers {
		if err := m.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
