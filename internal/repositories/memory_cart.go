package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"kiddeo/internal/cart"
)

// MemoryCartStore is an in-process local cart store with change
// notifications. It serves development runs without Redis and tests.
type MemoryCartStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	subs   map[string]map[int]chan string
	nextID int
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{
		data: make(map[string][]byte),
		subs: make(map[string]map[int]chan string),
	}
}

func (s *MemoryCartStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryCartStore) Set(ctx context.Context, key string, data []byte, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	for _, ch := range s.subs[key] {
		// Slow subscribers miss notifications rather than block writers.
		select {
		case ch <- origin:
		default:
		}
	}
	return nil
}

func (s *MemoryCartStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *MemoryCartStore) Subscribe(ctx context.Context, key string) (<-chan string, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan string, 8)
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]chan string)
	}
	s.subs[key][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[key][id]; ok {
			delete(s.subs[key], id)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// Keys lists the stored keys.
func (s *MemoryCartStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// MemoryCartRepository keeps signed-in users' carts in process.
type MemoryCartRepository struct {
	mu    sync.Mutex
	carts map[string][]byte
	fail  error
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{carts: make(map[string][]byte)}
}

func cartKey(userID, city string) string {
	return userID + "|" + city
}

func (r *MemoryCartRepository) Load(ctx context.Context, userID, city string) (*cart.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return nil, r.fail
	}
	data, ok := r.carts[cartKey(userID, city)]
	if !ok {
		return nil, nil
	}
	var snap cart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &snap, nil
}

func (r *MemoryCartRepository) Save(ctx context.Context, userID, city string, snap cart.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.carts[cartKey(userID, city)] = data
	return nil
}

// SetFailure makes every later call return err; nil restores the store.
func (r *MemoryCartRepository) SetFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}
