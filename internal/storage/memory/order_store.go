package memory

import (
	"context"
	"sort"
	"sync"

	"polycopy/internal/domain"
	"polycopy/internal/storage"
)

// OrderStore is an in-memory implementation of storage.OrderStore.
type OrderStore struct {
	mu   sync.RWMutex
	data map[string]*domain.OrderRecord // keyed by client order id
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		data: make(map[string]*domain.OrderRecord),
	}
}

// Insert adds a new order. Returns ErrDuplicateKey if id exists.
func (s *OrderStore) Insert(_ context.Context, o *domain.OrderRecord) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *o
	s.data[o.ID] = &copy
	return nil
}

// GetByID retrieves an order by its ID. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(_ context.Context, id string) (*domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *o
	return &copy, nil
}

// GetByTrader retrieves orders for a trader within [start, end].
func (s *OrderStore) GetByTrader(_ context.Context, trader string, start, end int64) ([]*domain.OrderRecord, error) {
	return s.filter(func(o *domain.OrderRecord) bool {
		return o.Trader == trader && o.CreatedAt >= start && o.CreatedAt <= end
	}), nil
}

// GetByStatus retrieves all orders with status.
func (s *OrderStore) GetByStatus(_ context.Context, status string) ([]*domain.OrderRecord, error) {
	return s.filter(func(o *domain.OrderRecord) bool {
		return o.Status == status
	}), nil
}

func (s *OrderStore) filter(match func(*domain.OrderRecord) bool) []*domain.OrderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OrderRecord
	for _, o := range s.data {
		if match(o) {
			copy := *o
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result
}

var _ storage.OrderStore = (*OrderStore)(nil)
