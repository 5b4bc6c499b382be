package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polycopy/internal/domain"
	"polycopy/internal/storage"
)

// OrderStore implements storage.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

const orderColumns = `
	id, trader, condition_id, token_id, side, size_usd, shares,
	limit_price, tick_size, neg_risk, status, broker_order_id, error, created_at`

// Insert adds a new order. Returns ErrDuplicateKey if id exists.
func (s *OrderStore) Insert(ctx context.Context, o *domain.OrderRecord) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO copy_orders (` + orderColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.Trader, o.ConditionID, o.TokenID, string(o.Side), o.SizeUSD, o.Shares,
		o.LimitPrice, o.TickSize, o.NegRisk, o.Status, o.BrokerOrderID, o.Error, o.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM copy_orders WHERE id = $1`

	o, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return o, nil
}

// GetByTrader retrieves orders for a trader within [start, end].
func (s *OrderStore) GetByTrader(ctx context.Context, trader string, start, end int64) ([]*domain.OrderRecord, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM copy_orders
		WHERE trader = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, trader, start, end)
	if err != nil {
		return nil, fmt.Errorf("get orders by trader: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

// GetByStatus retrieves all orders with status.
func (s *OrderStore) GetByStatus(ctx context.Context, status string) ([]*domain.OrderRecord, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM copy_orders
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("get orders by status: %w", err)
	}
	defer rows.Close()

	return scanOrders(rows)
}

func scanOrder(row pgx.Row) (*domain.OrderRecord, error) {
	var (
		o    domain.OrderRecord
		side string
	)
	err := row.Scan(
		&o.ID, &o.Trader, &o.ConditionID, &o.TokenID, &side, &o.SizeUSD, &o.Shares,
		&o.LimitPrice, &o.TickSize, &o.NegRisk, &o.Status, &o.BrokerOrderID, &o.Error, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Side = domain.Side(side)
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]*domain.OrderRecord, error) {
	var out []*domain.OrderRecord
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return out, nil
}
