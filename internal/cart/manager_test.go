package cart_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"kiddeo/internal/cart"
	"kiddeo/internal/repositories"
)

var slowWrites = cart.Config{PersistDelay: time.Hour, AnimationReset: time.Hour}

// countingStore records how many writes reach the local store.
type countingStore struct {
	*repositories.MemoryCartStore
	writes atomic.Int32
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryCartStore: repositories.NewMemoryCartStore()}
}

func (s *countingStore) Set(ctx context.Context, key string, data []byte, origin string) error {
	s.writes.Add(1)
	return s.MemoryCartStore.Set(ctx, key, data, origin)
}

func anonScope() cart.Scope {
	return cart.Scope{City: "Москва", DeviceID: "dev-1"}
}

func storedSnapshot(t *testing.T, store cart.LocalStore, key string) cart.Snapshot {
	t.Helper()
	data, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, data, "nothing stored under %s", key)
	var snap cart.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

func ticketBundle(eventID string, lines ...cart.TicketLine) cart.Item {
	var price float64
	for _, l := range lines {
		price += float64(l.Price) * float64(l.Quantity)
	}
	return cart.Item{
		ID:       cart.BundleID(eventID),
		Type:     cart.ItemTicket,
		Price:    price,
		Quantity: 1,
		Title:    "Event " + eventID,
		EventID:  eventID,
		Metadata: cart.Metadata{}.WithTickets(lines),
	}
}

func TestScopeKeys(t *testing.T) {
	s := cart.Scope{City: "Казань", DeviceID: "d"}
	assert.Equal(t, "device:d:cart:Казань", s.LocalKey())
	assert.Equal(t, s.AnonymousKey(), s.LocalKey())
	assert.Equal(t, "device:d:cart-legacy:Казань", s.LegacyKey())

	s.UserID = "u1"
	assert.True(t, s.Authenticated())
	assert.Equal(t, "device:d:cart:Казань:u1", s.LocalKey())
}

func TestManager_PersistsAndRestoresAnonymousCart(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryCartStore()

	m := cart.NewManager(anonScope(), nil, store, slowWrites, nil)
	state := m.Load(ctx)
	assert.False(t, state.IsLoading)

	m.AddToCart(cart.Item{ID: "e1", Type: cart.ItemProduct, Price: 100, Quantity: 2})
	m.AddToCart(cart.Item{ID: "e1", Type: cart.ItemProduct, Price: 100, Quantity: 1})
	require.NoError(t, m.Flush(ctx))

	snap := storedSnapshot(t, store, anonScope().LocalKey())
	assert.Equal(t, 300.0, snap.Total)
	assert.Equal(t, 3, snap.ItemCount)

	restored := cart.NewManager(anonScope(), nil, store, slowWrites, nil).Load(ctx)
	require.Len(t, restored.Items, 1)
	assert.Equal(t, 3, restored.Items[0].Quantity)
	assert.Equal(t, 300.0, restored.Total)
	assert.False(t, restored.IsAnimating)
	assert.Nil(t, restored.LastAddedItem)
}

func TestManager_DebouncesWrites(t *testing.T) {
	store := newCountingStore()
	m := cart.NewManager(anonScope(), nil, store, cart.Config{PersistDelay: 30 * time.Millisecond, AnimationReset: time.Hour}, nil)
	m.Load(context.Background())

	for i := 0; i < 5; i++ {
		m.AddToCart(cart.Item{ID: "p", Price: 10, Quantity: 1})
	}

	assert.Eventually(t, func() bool { return store.writes.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), store.writes.Load())

	snap := storedSnapshot(t, store, anonScope().LocalKey())
	assert.Equal(t, 5, snap.ItemCount)
}

func TestManager_SkipsUnchangedWrites(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	m := cart.NewManager(anonScope(), nil, store, slowWrites, nil)
	m.Load(ctx)

	m.AddToCart(cart.Item{ID: "p", Price: 10, Quantity: 1})
	require.NoError(t, m.Flush(ctx))
	m.ToggleCart()
	m.UpdateQuantity("p", 1)
	require.NoError(t, m.Flush(ctx))

	assert.Equal(t, int32(1), store.writes.Load())

	// A freshly hydrated cart is not written back.
	reloaded := cart.NewManager(anonScope(), nil, store, slowWrites, nil)
	reloaded.Load(ctx)
	require.NoError(t, reloaded.Flush(ctx))
	assert.Equal(t, int32(1), store.writes.Load())
}

func TestManager_RemoteForSignedInUsers(t *testing.T) {
	ctx := context.Background()
	remote := repositories.NewMemoryCartRepository()
	local := repositories.NewMemoryCartStore()
	scope := cart.Scope{City: "Москва", DeviceID: "dev-1", UserID: "u1"}

	m := cart.NewManager(scope, remote, local, slowWrites, nil)
	m.Load(ctx)
	m.AddToCart(cart.Item{ID: "p", Price: 50, Quantity: 2})
	require.NoError(t, m.Flush(ctx))

	snap, err := remote.Load(ctx, "u1", "Москва")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 100.0, snap.Total)
	assert.Empty(t, local.Keys())

	other := cart.NewManager(cart.Scope{City: "Москва", DeviceID: "dev-2", UserID: "u1"}, remote, local, slowWrites, nil)
	state := other.Load(ctx)
	assert.Equal(t, 2, state.ItemCount)
}

func TestManager_RemoteFailureFallsBackToLocal(t *testing.T) {
	ctx := context.Background()
	remote := repositories.NewMemoryCartRepository()
	remote.SetFailure(errors.New("db unavailable"))
	local := repositories.NewMemoryCartStore()
	scope := cart.Scope{City: "Москва", DeviceID: "dev-1", UserID: "u1"}

	m := cart.NewManager(scope, remote, local, slowWrites, nil)
	m.Load(ctx)
	state := m.AddToCart(cart.Item{ID: "p", Price: 50, Quantity: 1})
	assert.Equal(t, 1, state.ItemCount, "state is never blocked by persistence")
	require.NoError(t, m.Flush(ctx))

	snap := storedSnapshot(t, local, scope.LocalKey())
	assert.Equal(t, 1, snap.ItemCount)

	restored := cart.NewManager(scope, remote, local, slowWrites, nil).Load(ctx)
	assert.Equal(t, 1, restored.ItemCount)
}

func TestManager_MigratesLegacyCart(t *testing.T) {
	ctx := context.Background()
	local := repositories.NewMemoryCartStore()
	scope := anonScope()
	legacy := `[{"eventId": 42, "eventTitle": "Ёлка", "tickets": [{"ticketId": 1, "price": 500, "quantity": 2}], "total": 1000}]`
	require.NoError(t, local.Set(ctx, scope.LegacyKey(), []byte(legacy), "old-client"))

	m := cart.NewManager(scope, nil, local, slowWrites, nil)
	state := m.Load(ctx)

	require.Len(t, state.Items, 1)
	assert.Equal(t, "ticket-42", state.Items[0].ID)
	assert.Equal(t, 1000.0, state.Total)

	data, err := local.Get(ctx, scope.LegacyKey())
	require.NoError(t, err)
	assert.Nil(t, data, "legacy record is removed once migrated")

	require.NoError(t, m.Flush(ctx))
	snap := storedSnapshot(t, local, scope.LocalKey())
	assert.Equal(t, 1000.0, snap.Total)
}

func TestManager_ClearCartPurgesLocalCopies(t *testing.T) {
	ctx := context.Background()
	local := repositories.NewMemoryCartStore()
	scope := cart.Scope{City: "Москва", DeviceID: "dev-1", UserID: "u1"}
	for _, key := range []string{scope.LocalKey(), scope.AnonymousKey(), scope.LegacyKey()} {
		require.NoError(t, local.Set(ctx, key, []byte(`{"items":[]}`), "x"))
	}
	other := cart.Scope{City: "Казань", DeviceID: "dev-1"}
	require.NoError(t, local.Set(ctx, other.LocalKey(), []byte(`{"items":[]}`), "x"))

	m := cart.NewManager(scope, nil, local, slowWrites, nil)
	m.Load(ctx)
	m.AddToCart(cart.Item{ID: "p", Price: 10, Quantity: 1})
	state := m.ClearCart(ctx)
	require.NoError(t, m.Flush(ctx))

	assert.Empty(t, state.Items)
	assert.Equal(t, []string{other.LocalKey()}, local.Keys())
}

func TestManager_SetUser(t *testing.T) {
	ctx := context.Background()
	remote := repositories.NewMemoryCartRepository()
	local := repositories.NewMemoryCartStore()

	require.NoError(t, remote.Save(ctx, "u1", "Москва", cart.Snapshot{
		Items: []cart.Item{{ID: "saved", Price: 200, Quantity: 1}}, Total: 200, ItemCount: 1,
	}))

	m := cart.NewManager(anonScope(), remote, local, slowWrites, nil)
	m.Load(ctx)
	m.AddToCart(cart.Item{ID: "anon", Price: 100, Quantity: 1})

	t.Run("sign in merges", func(t *testing.T) {
		state := m.SetUser(ctx, "u1")
		ids := []string{}
		for _, it := range state.Items {
			ids = append(ids, it.ID)
		}
		assert.ElementsMatch(t, []string{"anon", "saved"}, ids)
		assert.Equal(t, 300.0, state.Total)

		require.NoError(t, m.Flush(ctx))
		snap, err := remote.Load(ctx, "u1", "Москва")
		require.NoError(t, err)
		assert.Equal(t, 2, snap.ItemCount)
	})

	t.Run("switching users clears", func(t *testing.T) {
		state := m.SetUser(ctx, "u2")
		assert.Empty(t, state.Items)
		assert.Equal(t, "u2", m.Scope().UserID)

		snap, err := remote.Load(ctx, "u1", "Москва")
		require.NoError(t, err)
		assert.Equal(t, 2, snap.ItemCount, "the previous user's cart is untouched")
	})

	t.Run("logout clears and purges", func(t *testing.T) {
		m.AddToCart(cart.Item{ID: "u2-item", Price: 1, Quantity: 1})
		state := m.SetUser(ctx, "")
		assert.Empty(t, state.Items)
		assert.False(t, m.Scope().Authenticated())
		assert.Empty(t, local.Keys())
	})
}

func TestManager_ForceLoadKeepsOpenFlag(t *testing.T) {
	ctx := context.Background()
	local := repositories.NewMemoryCartStore()
	scope := anonScope()

	m := cart.NewManager(scope, nil, local, slowWrites, nil)
	m.Load(ctx)
	m.AddToCart(cart.Item{ID: "stale", Price: 1, Quantity: 1})
	m.ToggleCart()

	require.NoError(t, local.Set(ctx, scope.LocalKey(), []byte(`{"items":[{"id":"fresh","price":5,"quantity":2}],"total":10,"itemCount":2}`), "elsewhere"))

	state := m.ForceLoadCart(ctx)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "fresh", state.Items[0].ID)
	assert.Equal(t, 10.0, state.Total)
	assert.True(t, state.IsOpen)
}

func TestManager_ReloadsOnWritesFromOtherManagers(t *testing.T) {
	ctx := context.Background()
	local := repositories.NewMemoryCartStore()

	first := cart.NewManager(anonScope(), nil, local, slowWrites, nil)
	second := cart.NewManager(anonScope(), nil, local, slowWrites, nil)
	first.Load(ctx)
	second.Load(ctx)
	t.Cleanup(func() {
		first.Close(ctx)
		second.Close(ctx)
	})

	first.AddToCart(cart.Item{ID: "shared", Price: 7, Quantity: 3})
	require.NoError(t, first.Flush(ctx))

	assert.Eventually(t, func() bool { return second.State().ItemCount == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, first.State().ItemCount)
}

func TestManager_AnimationResets(t *testing.T) {
	m := cart.NewManager(anonScope(), nil, nil, cart.Config{PersistDelay: time.Hour, AnimationReset: 10 * time.Millisecond}, nil)

	state := m.AddToCart(cart.Item{ID: "p", Price: 1, Quantity: 1})
	assert.True(t, state.IsAnimating)
	assert.Eventually(t, func() bool { return !m.State().IsAnimating }, time.Second, 5*time.Millisecond)
	assert.NotNil(t, m.State().LastAddedItem)
}

func TestManager_StateIsACopy(t *testing.T) {
	m := cart.NewManager(anonScope(), nil, nil, slowWrites, nil)
	state := m.AddToCart(cart.Item{ID: "p", Price: 1, Quantity: 1, Metadata: cart.Metadata{"k": "v"}})

	state.Items[0].Quantity = 99
	state.Items[0].Metadata["k"] = "changed"

	fresh := m.State()
	assert.Equal(t, 1, fresh.Items[0].Quantity)
	assert.Equal(t, "v", fresh.Items[0].Metadata["k"])
}

func TestManager_UpdateTicketQuantity(t *testing.T) {
	m := cart.NewManager(anonScope(), nil, nil, slowWrites, nil)
	m.AddToCart(ticketBundle("e1",
		cart.TicketLine{TicketID: "std", Price: 500, Quantity: 2},
		cart.TicketLine{TicketID: "vip", Price: 1500, Quantity: 1},
	))

	state := m.UpdateTicketQuantity("e1", "std", 3)
	assert.Equal(t, 3000.0, state.Total)

	state = m.UpdateTicketQuantity("e1", "vip", 0)
	require.Len(t, state.Items, 1)
	assert.Equal(t, 1500.0, state.Items[0].Price)
	assert.Len(t, state.Items[0].Metadata.Tickets(), 1)

	state = m.UpdateTicketQuantity("e1", "std", 0)
	assert.Empty(t, state.Items)

	state = m.UpdateTicketQuantity("missing", "std", 1)
	assert.Empty(t, state.Items)
}

func TestManager_UpdateTicketQuantityFindsBundleByEvent(t *testing.T) {
	m := cart.NewManager(anonScope(), nil, nil, slowWrites, nil)
	bundle := ticketBundle("42", cart.TicketLine{TicketID: "1", Price: 500, Quantity: 2})
	bundle.ID = "e42"
	bundle.Price = 1000
	m.AddToCart(bundle)

	bundle, ok := m.State().TicketBundle("42")
	require.True(t, ok)
	assert.Equal(t, "e42", bundle.ID)

	state := m.UpdateTicketQuantity("42", "1", 1)
	require.Len(t, state.Items, 1)
	assert.Equal(t, "e42", state.Items[0].ID)
	assert.Equal(t, 500.0, state.Items[0].Price)
	assert.Equal(t, 500.0, state.Total)

	state = m.UpdateTicketQuantity("42", "1", 0)
	assert.Empty(t, state.Items)
	_, ok = state.TicketBundle("42")
	assert.False(t, ok)
}

func TestManager_UnknownTierLeavesCartUntouched(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	m := cart.NewManager(anonScope(), nil, store, slowWrites, nil)
	m.Load(ctx)

	m.AddToCart(ticketBundle("e1", cart.TicketLine{TicketID: "std", Price: 500, Quantity: 1}))
	m.AddToCart(cart.Item{ID: "p", Price: 10, Quantity: 1})
	require.NoError(t, m.Flush(ctx))
	require.Equal(t, int32(1), store.writes.Load())
	before := m.State()

	after := m.UpdateTicketQuantity("e1", "vip", 3)
	assert.Equal(t, before, after)
	assert.Equal(t, []string{cart.BundleID("e1"), "p"}, []string{after.Items[0].ID, after.Items[1].ID})

	require.NoError(t, m.Flush(ctx))
	assert.Equal(t, int32(1), store.writes.Load())
}

func TestManager_TicketBundlePriceMatchesTiers(t *testing.T) {
	tiers := []cart.TicketLine{
		{TicketID: "a", Price: 100, Quantity: 1},
		{TicketID: "b", Price: 250, Quantity: 2},
		{TicketID: "c", Price: 75.5, Quantity: 1},
	}
	prices := map[string]float64{"a": 100, "b": 250, "c": 75.5}

	rapid.Check(t, func(t *rapid.T) {
		m := cart.NewManager(anonScope(), nil, nil, slowWrites, nil)
		m.AddToCart(ticketBundle("e1", tiers...))
		want := map[string]int{"a": 1, "b": 2, "c": 1}

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "tier")
			qty := rapid.IntRange(-1, 4).Draw(t, "qty")
			m.UpdateTicketQuantity("e1", id, qty)

			if _, ok := want[id]; ok {
				if qty > 0 {
					want[id] = qty
				} else {
					delete(want, id)
				}
			}
		}

		state := m.State()
		if len(want) == 0 {
			if len(state.Items) != 0 {
				t.Fatalf("bundle kept after all tiers reached zero: %+v", state.Items)
			}
			return
		}
		if len(state.Items) != 1 {
			t.Fatalf("expected one bundle, got %d items", len(state.Items))
		}

		var expected float64
		for id, q := range want {
			expected += prices[id] * float64(q)
		}
		if math.Abs(state.Items[0].Price-expected) > 0.001 {
			t.Fatalf("bundle price %v, tiers sum to %v", state.Items[0].Price, expected)
		}
		for _, line := range state.Items[0].Metadata.Tickets() {
			if line.Quantity <= 0 || want[string(line.TicketID)] != line.Quantity {
				t.Fatalf("unexpected tier %+v", line)
			}
		}
	})
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	local := repositories.NewMemoryCartStore()
	reg := cart.NewRegistry(nil, local, slowWrites, nil)

	m := reg.Get(ctx, "Москва", "dev-1", "")
	m.AddToCart(cart.Item{ID: "p", Price: 10, Quantity: 1})

	same := reg.Get(ctx, "Москва", "dev-1", "")
	assert.Same(t, m, same)
	assert.Equal(t, 1, same.State().ItemCount)

	other := reg.Get(ctx, "Казань", "dev-1", "")
	assert.NotSame(t, m, other)
	assert.Equal(t, 2, reg.Len())

	assert.Equal(t, 0, reg.Sweep(ctx, time.Hour))
	assert.Equal(t, 2, reg.Sweep(ctx, -time.Second))
	assert.Equal(t, 0, reg.Len())

	snap := storedSnapshot(t, local, anonScope().LocalKey())
	assert.Equal(t, 1, snap.ItemCount, "sweeping flushes pending writes")

	reg.Get(ctx, "Москва", "dev-1", "")
	require.NoError(t, reg.Close(ctx))
	assert.Equal(t, 0, reg.Len())
}
