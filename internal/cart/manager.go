package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"kiddeo/internal/logger"
)

// Scope identifies whose cart a Manager holds.
type Scope struct {
	City     string
	DeviceID string
	UserID   string
}

func (s Scope) Authenticated() bool {
	return s.UserID != ""
}

// LocalKey is the local store key of the cart for the current owner.
func (s Scope) LocalKey() string {
	if s.UserID == "" {
		return s.AnonymousKey()
	}
	return fmt.Sprintf("device:%s:cart:%s:%s", s.DeviceID, s.City, s.UserID)
}

func (s Scope) AnonymousKey() string {
	return fmt.Sprintf("device:%s:cart:%s", s.DeviceID, s.City)
}

func (s Scope) LegacyKey() string {
	return fmt.Sprintf("device:%s:cart-legacy:%s", s.DeviceID, s.City)
}

type Config struct {
	PersistDelay   time.Duration
	AnimationReset time.Duration
}

func DefaultConfig() Config {
	return Config{PersistDelay: 2 * time.Second, AnimationReset: 2 * time.Second}
}

// Manager owns one cart. All transitions go through Reduce under a single
// mutex, so the cart has exactly one logical writer.
type Manager struct {
	mu     sync.Mutex
	state  State
	scope  Scope
	cfg    Config
	remote RemoteStore
	local  LocalStore
	writer *Writer
	log    logger.Logger
	origin string

	loaded      bool
	closed      bool
	animTimer   *time.Timer
	unsubscribe func()
	lastUsed    time.Time
}

func NewManager(scope Scope, remote RemoteStore, local LocalStore, cfg Config, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	origin := uuid.NewString()
	return &Manager{
		state:    NewState(),
		scope:    scope,
		cfg:      cfg,
		remote:   remote,
		local:    local,
		writer:   NewWriter(remote, local, cfg.PersistDelay, origin, log),
		log:      log.With("city", scope.City, "device_id", scope.DeviceID),
		origin:   origin,
		lastUsed: time.Now(),
	}
}

// State returns a copy of the current cart.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

func (m *Manager) Scope() Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scope
}

// Load hydrates the cart from storage once and starts watching the local
// key for writes made by other managers of the same device.
func (m *Manager) Load(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded && !m.closed {
		m.loaded = true
		m.hydrate(ctx, false)
		m.resubscribe(ctx)
	}
	return cloneState(m.state)
}

func (m *Manager) AddToCart(item Item) State {
	return m.dispatch(AddItem{Item: item})
}

func (m *Manager) RemoveFromCart(id string) State {
	return m.dispatch(RemoveItem{ID: id})
}

// UpdateQuantity sets the quantity of an item; zero or less removes it.
func (m *Manager) UpdateQuantity(id string, quantity int) State {
	return m.dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

func (m *Manager) UpdateItemMetadata(id string, md Metadata) State {
	return m.dispatch(UpdateItemMetadata{ID: id, Metadata: md})
}

func (m *Manager) ToggleCart() State {
	return m.dispatch(ToggleCart{})
}

// UpdateTicketQuantity sets the quantity of one tier inside an event's
// ticket bundle. Tiers that reach zero are dropped, and the bundle goes
// with its last tier. The bundle price is recomputed from its tiers. An
// unknown tier leaves the cart untouched.
func (m *Manager) UpdateTicketQuantity(eventID, ticketID string, quantity int) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()

	i := indexOfTicketBundle(m.state.Items, eventID)
	if i < 0 {
		return cloneState(m.state)
	}
	bundle := m.state.Items[i]
	id := bundle.ID

	var lines []TicketLine
	matched := false
	for _, l := range bundle.Metadata.Tickets() {
		if string(l.TicketID) == ticketID {
			l.Quantity = quantity
			matched = true
		}
		if l.Quantity > 0 {
			lines = append(lines, l)
		}
	}
	if !matched {
		return cloneState(m.state)
	}

	m.apply(RemoveItem{ID: id})
	if len(lines) > 0 {
		bundle.Metadata = bundle.Metadata.WithTickets(lines)
		bundle.Price = bundlePrice(lines)
		m.apply(AddItem{Item: bundle})
		m.scheduleAnimationReset()
	}
	m.writer.Schedule(m.scope, m.state.Snapshot())
	return cloneState(m.state)
}

// ClearCart empties the cart and removes every local copy of it for the
// city, including the anonymous and legacy entries. A pending write is
// dropped.
func (m *Manager) ClearCart(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()
	m.clear(ctx)
	return cloneState(m.state)
}

// ForceLoadCart replaces the in-memory items with the stored cart.
func (m *Manager) ForceLoadCart(ctx context.Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.loaded = true
		m.hydrate(ctx, true)
	}
	return cloneState(m.state)
}

// SetUser moves the cart to a new owner. The previous owner's pending
// write is flushed first. Switching between two users clears the cart,
// logging out purges it, and signing in merges the anonymous cart with
// the user's stored one.
func (m *Manager) SetUser(ctx context.Context, userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()

	prev := m.scope.UserID
	if prev == userID {
		return cloneState(m.state)
	}

	if err := m.writer.Flush(ctx); err != nil {
		m.log.Warn("failed to flush cart before user change", "user_id", prev, "error", err)
	}

	switch {
	case prev != "" && userID == "":
		m.clear(ctx)
	case prev != "" && userID != "":
		m.apply(ClearCart{})
		m.writer.Reset()
	}

	m.scope.UserID = userID
	m.log.Debug("cart owner changed", "from", prev, "to", userID)

	if m.loaded && !m.closed {
		m.hydrate(ctx, false)
		m.resubscribe(ctx)
	}
	return cloneState(m.state)
}

// Flush writes any pending change immediately.
func (m *Manager) Flush(ctx context.Context) error {
	return m.writer.Flush(ctx)
}

// Close stops timers and the subscription and flushes the pending write.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	if m.animTimer != nil {
		m.animTimer.Stop()
		m.animTimer = nil
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.mu.Unlock()
	return m.writer.Flush(ctx)
}

// IdleSince reports when the manager was last used.
func (m *Manager) IdleSince() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUsed
}

func (m *Manager) dispatch(a Action) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touch()

	m.apply(a)
	if _, ok := a.(AddItem); ok {
		m.scheduleAnimationReset()
	}
	if changesItems(a) {
		m.writer.Schedule(m.scope, m.state.Snapshot())
	}
	return cloneState(m.state)
}

// apply requires m.mu.
func (m *Manager) apply(a Action) {
	m.state = Reduce(m.state, a)
}

func (m *Manager) touch() {
	m.lastUsed = time.Now()
}

func (m *Manager) scheduleAnimationReset() {
	if m.animTimer != nil {
		m.animTimer.Stop()
	}
	m.animTimer = time.AfterFunc(m.cfg.AnimationReset, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.apply(SetAnimating{Value: false})
	})
}

func (m *Manager) clear(ctx context.Context) {
	m.apply(ClearCart{})
	m.writer.Reset()
	if m.local == nil {
		return
	}
	keys := []string{m.scope.LocalKey(), m.scope.AnonymousKey(), m.scope.LegacyKey()}
	if err := m.local.Delete(ctx, keys...); err != nil {
		m.log.Warn("failed to purge local cart", "error", err)
	}
}

// hydrate replays the stored cart and any legacy records through AddItem.
// Items already present are kept as they are. With replace set the items
// are dropped first; the open flag survives either way.
func (m *Manager) hydrate(ctx context.Context, replace bool) {
	if replace {
		m.apply(ClearCart{})
		m.writer.Reset()
	}
	hadItems := len(m.state.Items) > 0

	stored := m.readStored(ctx)
	legacy := m.readLegacy(ctx)

	present := make(map[string]bool, len(m.state.Items))
	for _, it := range m.state.Items {
		present[it.ID] = true
	}
	for _, it := range stored {
		if !present[it.ID] {
			m.apply(AddItem{Item: it})
			present[it.ID] = true
		}
	}
	migrated := 0
	for _, it := range legacy {
		if !present[it.ID] {
			m.apply(AddItem{Item: it})
			present[it.ID] = true
			migrated++
		}
	}

	m.apply(SetAnimating{Value: false})
	m.apply(SetLastAdded{Item: nil})
	m.apply(SetLoading{Value: false})

	snap := m.state.Snapshot()
	switch {
	case hadItems || migrated > 0:
		m.writer.Schedule(m.scope, snap)
	case len(stored) > 0:
		m.writer.MarkSaved(m.scope, snap)
	}

	if migrated > 0 && m.local != nil {
		if err := m.local.Delete(ctx, m.scope.LegacyKey()); err != nil {
			m.log.Warn("failed to remove migrated legacy cart", "error", err)
		}
		m.log.Info("migrated legacy cart", "items", migrated)
	}
}

func (m *Manager) readStored(ctx context.Context) []Item {
	if m.scope.Authenticated() && m.remote != nil {
		snap, err := m.remote.Load(ctx, m.scope.UserID, m.scope.City)
		if err == nil && snap != nil {
			return snap.Items
		}
		if err != nil {
			m.log.Warn("remote cart read failed, falling back to local store",
				"user_id", m.scope.UserID, "error", err)
		}
	}

	if m.local == nil {
		return nil
	}
	data, err := m.local.Get(ctx, m.scope.LocalKey())
	if err != nil {
		m.log.Warn("local cart read failed", "key", m.scope.LocalKey(), "error", err)
		return nil
	}
	if data == nil {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.log.Warn("discarding malformed stored cart", "key", m.scope.LocalKey(), "error", err)
		return nil
	}
	return snap.Items
}

func (m *Manager) readLegacy(ctx context.Context) []Item {
	if m.local == nil {
		return nil
	}
	data, err := m.local.Get(ctx, m.scope.LegacyKey())
	if err != nil || data == nil {
		return nil
	}
	records, err := ParseLegacy(data)
	if err != nil {
		m.log.Warn("discarding malformed legacy cart", "error", err)
		return nil
	}
	return MigrateLegacy(records)
}

// resubscribe watches the current local key. A write from another origin
// reloads the cart. The store's cancel func must not block on the reader.
func (m *Manager) resubscribe(ctx context.Context) {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.local == nil {
		return
	}
	events, cancel, err := m.local.Subscribe(context.WithoutCancel(ctx), m.scope.LocalKey())
	if err != nil {
		m.log.Warn("failed to watch cart key", "key", m.scope.LocalKey(), "error", err)
		return
	}
	m.unsubscribe = cancel

	go func() {
		for origin := range events {
			if origin == m.origin {
				continue
			}
			loadCtx, done := context.WithTimeout(context.Background(), writeTimeout)
			m.ForceLoadCart(loadCtx)
			done()
		}
	}()
}
