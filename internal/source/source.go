// Package source detects trades of tracked wallets and hands them to a
// Handler as normalised domain.TradeEvents.
package source

import (
	"context"
	"strconv"

	"polycopy/internal/domain"
)

// Handler consumes detected trades. It is called from a single goroutine
// per source, in detection order.
type Handler func(ctx context.Context, trade domain.TradeEvent)

// tradeKey identifies a trade for duplicate suppression.
func tradeKey(t domain.TradeEvent) string {
	if t.TransactionHash != "" {
		return t.TransactionHash
	}
	return t.Asset + "-" + strconv.FormatInt(t.Timestamp, 10)
}

// seenSet is a FIFO-bounded set of trade keys.
type seenSet struct {
	capacity int
	keys     map[string]struct{}
	order    []string
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{capacity: capacity, keys: make(map[string]struct{})}
}

func (s *seenSet) contains(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// add inserts key, evicting the oldest keys beyond capacity.
func (s *seenSet) add(key string) {
	if s.contains(key) {
		return
	}
	s.keys[key] = struct{}{}
	s.order = append(s.order, key)

	if s.capacity > 0 && len(s.order) > s.capacity {
		drop := len(s.order) - s.capacity
		for _, k := range s.order[:drop] {
			delete(s.keys, k)
		}
		s.order = append([]string(nil), s.order[drop:]...)
	}
}

func (s *seenSet) len() int { return len(s.keys) }
