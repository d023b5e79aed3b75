package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiddeo/internal/cart"
	"kiddeo/internal/filter"
	"kiddeo/internal/models"
)

func TestMemoryEventRepository_FindMany(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	prio := 2

	repo := NewMemoryEventRepository(
		&models.Event{Title: "B", City: "Москва", Status: models.StatusActive, StartDate: start.Add(time.Hour), EndDate: start.Add(2 * time.Hour)},
		&models.Event{Title: "A", City: "Москва", Status: models.StatusActive, StartDate: start, EndDate: start.Add(time.Hour)},
		&models.Event{Title: "P", City: "Москва", Status: models.StatusActive, StartDate: start.Add(5 * time.Hour), EndDate: start.Add(6 * time.Hour), Priority: &prio},
		&models.Event{Title: "Draft", City: "Москва", Status: models.StatusDraft, StartDate: start, EndDate: start.Add(time.Hour)},
		&models.Event{Title: "Elsewhere", City: "Казань", Status: models.StatusActive, StartDate: start, EndDate: start.Add(time.Hour)},
	)

	pred := filter.And{
		filter.Compare{Field: filter.FieldStatus, Op: filter.OpEq, Value: "active"},
		filter.Compare{Field: filter.FieldCity, Op: filter.OpEq, Value: "Москва"},
	}

	all, err := repo.FindMany(ctx, pred, filter.RankingOrder, filter.Pagination{})
	require.NoError(t, err)
	titles := make([]string, len(all))
	for i, e := range all {
		titles[i] = e.Title
	}
	assert.Equal(t, []string{"P", "A", "B"}, titles)

	page, err := repo.FindMany(ctx, pred, filter.RankingOrder, filter.Pagination{Skip: 1, Take: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "A", page[0].Title)

	past, err := repo.FindMany(ctx, pred, filter.RankingOrder, filter.Pagination{Skip: 10})
	require.NoError(t, err)
	assert.Empty(t, past)

	count, err := repo.Count(ctx, pred)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMemoryEventRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	start := time.Now()
	repo := NewMemoryEventRepository(&models.Event{Title: "Original", City: "Москва", Status: models.StatusActive, StartDate: start, EndDate: start})

	first, err := repo.FindFirst(ctx, nil, nil)
	require.NoError(t, err)
	first.Title = "Mutated"

	again, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}

func TestMemoryEventRepository_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryEventRepository()

	err := repo.Create(ctx, &models.Event{Title: ""})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	e := &models.Event{Title: "New", City: "Казань", Status: models.StatusActive, StartDate: time.Now(), EndDate: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, e))
	assert.Equal(t, 1, e.ID)

	none, err := repo.FindFirst(ctx, filter.Nothing{}, nil)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = repo.GetByID(ctx, 42)
	assert.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestMemoryPresetRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPresetRepository(
		&models.FilterPreset{Page: "events", Label: "Бесплатно", QueryJSON: `{"isPaid":false}`, IsActive: true},
		&models.FilterPreset{Page: "events", Label: "Скрытый", QueryJSON: `{}`, IsActive: false},
	)

	p, err := repo.FindPreset(ctx, "events", "Бесплатно")
	require.NoError(t, err)
	assert.Equal(t, `{"isPaid":false}`, p.QueryJSON)

	_, err = repo.FindPreset(ctx, "events", "Скрытый")
	assert.ErrorIs(t, err, models.ErrPresetNotFound)

	_, err = repo.FindPreset(ctx, "afisha", "Бесплатно")
	assert.ErrorIs(t, err, models.ErrPresetNotFound)

	err = repo.Upsert(ctx, &models.FilterPreset{Page: "events", Label: "Бесплатно", QueryJSON: `not json`, IsActive: true})
	assert.Error(t, err)
}

func TestMemoryCartStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCartStore()

	data, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.Set(ctx, "k1", []byte(`{"items":[]}`), "origin-a"))
	require.NoError(t, store.Set(ctx, "k2", []byte(`{}`), "origin-a"))

	data, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(data))

	require.NoError(t, store.Delete(ctx, "k1", "k2", "never-set"))
	assert.Empty(t, store.Keys())
}

func TestMemoryCartStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCartStore()

	events, cancel, err := store.Subscribe(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, "other", []byte("{}"), "ignored"))
	require.NoError(t, store.Set(ctx, "k", []byte("{}"), "origin-b"))

	select {
	case origin := <-events:
		assert.Equal(t, "origin-b", origin)
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	cancel()
	_, open := <-events
	assert.False(t, open)
}

func TestMemoryCartRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCartRepository()

	snap, err := repo.Load(ctx, "u1", "Москва")
	require.NoError(t, err)
	assert.Nil(t, snap)

	saved := cart.Snapshot{Items: []cart.Item{{ID: "p1", Type: cart.ItemProduct, Price: 100, Quantity: 3, Title: "Набор"}}, Total: 300, ItemCount: 3}
	require.NoError(t, repo.Save(ctx, "u1", "Москва", saved))

	snap, err = repo.Load(ctx, "u1", "Москва")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, saved, *snap)

	other, err := repo.Load(ctx, "u1", "Казань")
	require.NoError(t, err)
	assert.Nil(t, other)

	boom := errors.New("unavailable")
	repo.SetFailure(boom)
	_, err = repo.Load(ctx, "u1", "Москва")
	assert.ErrorIs(t, err, boom)
}
