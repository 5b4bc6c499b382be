package memory

import (
	"context"
	"sort"
	"sync"

	"polycopy/internal/domain"
	"polycopy/internal/storage"
)

// DecisionStore is an in-memory implementation of storage.DecisionStore.
type DecisionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DecisionRecord // keyed by id
}

// NewDecisionStore creates a new in-memory decision store.
func NewDecisionStore() *DecisionStore {
	return &DecisionStore{
		data: make(map[string]*domain.DecisionRecord),
	}
}

// Insert adds a new decision. Returns ErrDuplicateKey if id exists.
func (s *DecisionStore) Insert(_ context.Context, d *domain.DecisionRecord) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *d
	s.data[d.ID] = &copy
	return nil
}

// GetByID retrieves a decision by its ID. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(_ context.Context, id string) (*domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *d
	return &copy, nil
}

// GetByTrader retrieves decisions for a trader within [start, end].
func (s *DecisionStore) GetByTrader(_ context.Context, trader string, start, end int64) ([]*domain.DecisionRecord, error) {
	return s.filter(func(d *domain.DecisionRecord) bool {
		return d.Trader == trader && d.EvaluatedAt >= start && d.EvaluatedAt <= end
	}), nil
}

// GetByCondition retrieves all decisions for a market.
func (s *DecisionStore) GetByCondition(_ context.Context, conditionID string) ([]*domain.DecisionRecord, error) {
	return s.filter(func(d *domain.DecisionRecord) bool {
		return d.ConditionID == conditionID
	}), nil
}

func (s *DecisionStore) filter(match func(*domain.DecisionRecord) bool) []*domain.DecisionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DecisionRecord
	for _, d := range s.data {
		if match(d) {
			copy := *d
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EvaluatedAt != result[j].EvaluatedAt {
			return result[i].EvaluatedAt < result[j].EvaluatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result
}

var _ storage.DecisionStore = (*DecisionStore)(nil)
