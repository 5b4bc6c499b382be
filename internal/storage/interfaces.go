package storage

import (
	"context"

	"polycopy/internal/domain"
)

// DecisionWriter appends decision audit records.
type DecisionWriter interface {
	// Insert adds a new decision. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, d *domain.DecisionRecord) error
}

// DecisionStore provides access to copy_decisions storage.
type DecisionStore interface {
	DecisionWriter

	// GetByID retrieves a decision by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.DecisionRecord, error)

	// GetByTrader retrieves decisions for a trader evaluated within
	// [start, end] (inclusive, Unix ms), ordered by evaluated_at ASC.
	GetByTrader(ctx context.Context, trader string, start, end int64) ([]*domain.DecisionRecord, error)

	// GetByCondition retrieves all decisions for a market, ordered by evaluated_at ASC.
	GetByCondition(ctx context.Context, conditionID string) ([]*domain.DecisionRecord, error)
}

// OrderWriter appends order audit records.
type OrderWriter interface {
	// Insert adds a new order. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, o *domain.OrderRecord) error
}

// OrderStore provides access to copy_orders storage.
type OrderStore interface {
	OrderWriter

	// GetByID retrieves an order by its client order ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.OrderRecord, error)

	// GetByTrader retrieves orders for a trader created within [start, end]
	// (inclusive, Unix ms), ordered by created_at ASC.
	GetByTrader(ctx context.Context, trader string, start, end int64) ([]*domain.OrderRecord, error)

	// GetByStatus retrieves all orders with status, ordered by created_at ASC.
	GetByStatus(ctx context.Context, status string) ([]*domain.OrderRecord, error)
}
