package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kiddeo/internal/filter"
	"kiddeo/internal/models"
)

// MemoryEventRepository is an in-process event store. It evaluates
// predicates with filter.Match, so its results match the SQL store.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []*models.Event
	nextID int
}

func NewMemoryEventRepository(events ...*models.Event) *MemoryEventRepository {
	r := &MemoryEventRepository{nextID: 1}
	for _, e := range events {
		clone := *e
		if clone.ID == 0 {
			clone.ID = r.nextID
		}
		if clone.ID >= r.nextID {
			r.nextID = clone.ID + 1
		}
		r.events = append(r.events, &clone)
	}
	return r
}

// Create validates and stores an event, assigning its id.
func (r *MemoryEventRepository) Create(ctx context.Context, e *models.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	e.ID = r.nextID
	e.CreatedAt, e.UpdatedAt = now, now
	r.nextID++

	clone := *e
	r.events = append(r.events, &clone)
	return nil
}

func (r *MemoryEventRepository) GetByID(ctx context.Context, id int) (*models.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.events {
		if e.ID == id {
			clone := *e
			return &clone, nil
		}
	}
	return nil, models.ErrEventNotFound
}

func (r *MemoryEventRepository) FindMany(ctx context.Context, p filter.Predicate, order []filter.OrderBy, page filter.Pagination) ([]*models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := r.matching(p)
	if len(order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			return filter.CompareEvents(matched[i], matched[j], order) < 0
		})
	}

	if page.Skip > 0 {
		if page.Skip >= len(matched) {
			return []*models.Event{}, nil
		}
		matched = matched[page.Skip:]
	}
	if page.Take > 0 && page.Take < len(matched) {
		matched = matched[:page.Take]
	}
	return matched, nil
}

func (r *MemoryEventRepository) Count(ctx context.Context, p filter.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(r.matching(p)), nil
}

func (r *MemoryEventRepository) FindFirst(ctx context.Context, p filter.Predicate, order []filter.OrderBy) (*models.Event, error) {
	events, err := r.FindMany(ctx, p, order, filter.Pagination{Take: 1})
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

func (r *MemoryEventRepository) matching(p filter.Predicate) []*models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Event, 0, len(r.events))
	for _, e := range r.events {
		if filter.Match(p, e) {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out
}

// MemoryPresetRepository serves quick filters without a database.
type MemoryPresetRepository struct {
	mu      sync.RWMutex
	presets map[string]*models.FilterPreset
}

func NewMemoryPresetRepository(presets ...*models.FilterPreset) *MemoryPresetRepository {
	r := &MemoryPresetRepository{presets: make(map[string]*models.FilterPreset)}
	for _, p := range presets {
		r.presets[presetKey(p.Page, p.Label)] = p
	}
	return r
}

func (r *MemoryPresetRepository) FindPreset(ctx context.Context, page, label string) (*models.FilterPreset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.presets[presetKey(page, label)]
	if !ok || !p.IsActive {
		return nil, models.ErrPresetNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *MemoryPresetRepository) Upsert(ctx context.Context, p *models.FilterPreset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *p
	r.presets[presetKey(p.Page, p.Label)] = &clone
	return nil
}

func presetKey(page, label string) string {
	return page + "\x00" + strings.TrimSpace(label)
}
