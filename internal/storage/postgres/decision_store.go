package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"polycopy/internal/domain"
	"polycopy/internal/storage"
)

// DecisionStore implements storage.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *Pool
}

// NewDecisionStore creates a new DecisionStore.
func NewDecisionStore(pool *Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionStore)(nil)

const decisionColumns = `
	id, trader, condition_id, transaction_hash, side, price, notional_usd,
	should_execute, code, reason, size_kind, size_value,
	net_exposure_usd, equity_usd, allocation_pct, dominance, evaluated_at`

// Insert adds a new decision. Returns ErrDuplicateKey if id exists.
func (s *DecisionStore) Insert(ctx context.Context, d *domain.DecisionRecord) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO copy_decisions (` + decisionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17
		)
	`

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.Trader, d.ConditionID, d.TransactionHash, string(d.Side), d.Price, d.NotionalUSD,
		d.ShouldExecute, string(d.Code), d.Reason, d.SizeKind, d.SizeValue,
		d.NetExposureUSD, d.EquityUSD, d.AllocationPct, d.Dominance, d.EvaluatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetByID retrieves a decision by its ID. Returns ErrNotFound if not exists.
func (s *DecisionStore) GetByID(ctx context.Context, id string) (*domain.DecisionRecord, error) {
	query := `SELECT ` + decisionColumns + ` FROM copy_decisions WHERE id = $1`

	d, err := scanDecision(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision by id: %w", err)
	}
	return d, nil
}

// GetByTrader retrieves decisions for a trader within [start, end].
func (s *DecisionStore) GetByTrader(ctx context.Context, trader string, start, end int64) ([]*domain.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM copy_decisions
		WHERE trader = $1 AND evaluated_at >= $2 AND evaluated_at <= $3
		ORDER BY evaluated_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, trader, start, end)
	if err != nil {
		return nil, fmt.Errorf("get decisions by trader: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetByCondition retrieves all decisions for a market.
func (s *DecisionStore) GetByCondition(ctx context.Context, conditionID string) ([]*domain.DecisionRecord, error) {
	query := `
		SELECT ` + decisionColumns + `
		FROM copy_decisions
		WHERE condition_id = $1
		ORDER BY evaluated_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, conditionID)
	if err != nil {
		return nil, fmt.Errorf("get decisions by condition: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

func scanDecision(row pgx.Row) (*domain.DecisionRecord, error) {
	var (
		d    domain.DecisionRecord
		side string
		code string
	)
	err := row.Scan(
		&d.ID, &d.Trader, &d.ConditionID, &d.TransactionHash, &side, &d.Price, &d.NotionalUSD,
		&d.ShouldExecute, &code, &d.Reason, &d.SizeKind, &d.SizeValue,
		&d.NetExposureUSD, &d.EquityUSD, &d.AllocationPct, &d.Dominance, &d.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Side = domain.Side(side)
	d.Code = domain.ReasonCode(code)
	return &d, nil
}

func scanDecisions(rows pgx.Rows) ([]*domain.DecisionRecord, error) {
	var out []*domain.DecisionRecord
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision rows: %w", err)
	}
	return out, nil
}
