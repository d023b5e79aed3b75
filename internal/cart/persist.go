package cart

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"kiddeo/internal/logger"
)

// RemoteStore holds carts of signed-in users.
type RemoteStore interface {
	// Load returns nil, nil when the user has no stored cart.
	Load(ctx context.Context, userID, city string) (*Snapshot, error)
	Save(ctx context.Context, userID, city string, snap Snapshot) error
}

// LocalStore is the per-device key-value store. Subscribe delivers the
// origin of every Set on key until the returned cancel func is called.
type LocalStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, origin string) error
	Delete(ctx context.Context, keys ...string) error
	Subscribe(ctx context.Context, key string) (<-chan string, func(), error)
}

var ErrNoStore = errors.New("no cart store configured")

const writeTimeout = 5 * time.Second

type pendingWrite struct {
	scope Scope
	snap  Snapshot
}

// Writer debounces cart persistence. Only the latest scheduled snapshot
// is written, and a write whose content equals the last successful one
// for the same key is skipped.
type Writer struct {
	remote RemoteStore
	local  LocalStore
	delay  time.Duration
	origin string
	log    logger.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *pendingWrite

	writeMu  sync.Mutex
	lastKey  string
	lastHash string
}

func NewWriter(remote RemoteStore, local LocalStore, delay time.Duration, origin string, log logger.Logger) *Writer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Writer{remote: remote, local: local, delay: delay, origin: origin, log: log}
}

// Schedule replaces any pending snapshot and restarts the quiet period.
func (w *Writer) Schedule(scope Scope, snap Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = &pendingWrite{scope: scope, snap: snap}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		_ = w.Flush(ctx)
	})
}

// Pending reports whether a write is waiting for its quiet period.
func (w *Writer) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// Flush writes the pending snapshot now.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	p := w.pending
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	if p == nil {
		return nil
	}
	return w.write(ctx, *p)
}

// Cancel drops the pending snapshot without writing it.
func (w *Writer) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// Reset cancels the pending write and forgets the last written content.
func (w *Writer) Reset() {
	w.Cancel()
	w.writeMu.Lock()
	w.lastKey, w.lastHash = "", ""
	w.writeMu.Unlock()
}

// MarkSaved records snap as already persisted for scope.
func (w *Writer) MarkSaved(scope Scope, snap Snapshot) {
	sum, _, err := digest(snap)
	if err != nil {
		return
	}
	w.writeMu.Lock()
	w.lastKey, w.lastHash = scope.LocalKey(), sum
	w.writeMu.Unlock()
}

func (w *Writer) write(ctx context.Context, p pendingWrite) error {
	sum, data, err := digest(p.snap)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	key := p.scope.LocalKey()
	if key == w.lastKey && sum == w.lastHash {
		return nil
	}

	if p.scope.Authenticated() && w.remote != nil {
		err := w.remote.Save(ctx, p.scope.UserID, p.scope.City, p.snap)
		if err == nil {
			w.lastKey, w.lastHash = key, sum
			return nil
		}
		w.log.Warn("remote cart write failed, falling back to local store",
			"user_id", p.scope.UserID, "city", p.scope.City, "error", err)
	}

	if w.local == nil {
		return ErrNoStore
	}
	if err := w.local.Set(ctx, key, data, w.origin); err != nil {
		w.log.Warn("local cart write failed", "key", key, "error", err)
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	w.lastKey, w.lastHash = key, sum
	return nil
}

func digest(snap Snapshot) (string, []byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), data, nil
}
