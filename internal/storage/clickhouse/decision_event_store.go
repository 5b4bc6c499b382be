package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"polycopy/internal/domain"
	"polycopy/internal/storage"
)

// DecisionEventStore implements storage.DecisionStore over the
// decision_events table.
type DecisionEventStore struct {
	conn *Conn
}

// NewDecisionEventStore creates a new DecisionEventStore.
func NewDecisionEventStore(conn *Conn) *DecisionEventStore {
	return &DecisionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DecisionStore = (*DecisionEventStore)(nil)

const decisionEventColumns = `
	id, trader, condition_id, transaction_hash, side, price, notional_usd,
	should_execute, code, reason, size_kind, size_value,
	net_exposure_usd, equity_usd, allocation_pct, dominance, evaluated_at`

// Insert adds a new decision event. Returns ErrDuplicateKey if id exists.
// MergeTree does not enforce uniqueness, so the check is explicit.
func (s *DecisionEventStore) Insert(ctx context.Context, d *domain.DecisionRecord) error {
	if d == nil || d.ID == "" {
		return storage.ErrInvalidInput
	}
	exists, err := s.exists(ctx, d.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `INSERT INTO decision_events (` + decisionEventColumns + `) VALUES (
		?, ?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?,
		?, ?, ?, ?, ?
	)`
	if err := s.conn.Exec(ctx, query, decisionValues(d)...); err != nil {
		return fmt.Errorf("insert decision event: %w", err)
	}
	return nil
}

// InsertBulk appends decision events in one batch. Fails the entire batch
// on any duplicate.
func (s *DecisionEventStore) InsertBulk(ctx context.Context, records []*domain.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(records))
	for _, d := range records {
		if d == nil || d.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := seen[d.ID]; dup {
			return storage.ErrDuplicateKey
		}
		seen[d.ID] = struct{}{}

		exists, err := s.exists(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO decision_events (`+decisionEventColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, d := range records {
		if err := batch.Append(decisionValues(d)...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByID retrieves a decision event by its ID. Returns ErrNotFound if not exists.
func (s *DecisionEventStore) GetByID(ctx context.Context, id string) (*domain.DecisionRecord, error) {
	query := `SELECT ` + decisionEventColumns + ` FROM decision_events WHERE id = ? LIMIT 1`

	d, err := scanInto(s.conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get decision event by id: %w", err)
	}
	return d, nil
}

// GetByTrader retrieves events for a trader within [start, end].
func (s *DecisionEventStore) GetByTrader(ctx context.Context, trader string, start, end int64) ([]*domain.DecisionRecord, error) {
	query := `
		SELECT ` + decisionEventColumns + `
		FROM decision_events
		WHERE trader = ? AND evaluated_at >= ? AND evaluated_at <= ?
		ORDER BY evaluated_at ASC, id ASC
	`
	rows, err := s.conn.Query(ctx, query, trader, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by trader: %w", err)
	}
	defer rows.Close()

	return scanDecisionEvents(rows)
}

// GetByCondition retrieves all events for a market.
func (s *DecisionEventStore) GetByCondition(ctx context.Context, conditionID string) ([]*domain.DecisionRecord, error) {
	query := `
		SELECT ` + decisionEventColumns + `
		FROM decision_events
		WHERE condition_id = ?
		ORDER BY evaluated_at ASC, id ASC
	`
	rows, err := s.conn.Query(ctx, query, conditionID)
	if err != nil {
		return nil, fmt.Errorf("query by condition: %w", err)
	}
	defer rows.Close()

	return scanDecisionEvents(rows)
}

// CodeCounts returns the number of decisions per reason code for trader
// within [start, end].
func (s *DecisionEventStore) CodeCounts(ctx context.Context, trader string, start, end int64) (map[domain.ReasonCode]uint64, error) {
	query := `
		SELECT code, count() AS n
		FROM decision_events
		WHERE trader = ? AND evaluated_at >= ? AND evaluated_at <= ?
		GROUP BY code
	`
	rows, err := s.conn.Query(ctx, query, trader, start, end)
	if err != nil {
		return nil, fmt.Errorf("query code counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ReasonCode]uint64)
	for rows.Next() {
		var (
			code string
			n    uint64
		)
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scan code count: %w", err)
		}
		counts[domain.ReasonCode(code)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate code counts: %w", err)
	}
	return counts, nil
}

func (s *DecisionEventStore) exists(ctx context.Context, id string) (bool, error) {
	var n uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM decision_events WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func decisionValues(d *domain.DecisionRecord) []any {
	var execute uint8
	if d.ShouldExecute {
		execute = 1
	}
	return []any{
		d.ID, d.Trader, d.ConditionID, d.TransactionHash, string(d.Side), d.Price, d.NotionalUSD,
		execute, string(d.Code), d.Reason, d.SizeKind, d.SizeValue,
		d.NetExposureUSD, d.EquityUSD, d.AllocationPct, d.Dominance, d.EvaluatedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDecisionEvents(rows driver.Rows) ([]*domain.DecisionRecord, error) {
	var out []*domain.DecisionRecord
	for rows.Next() {
		d, err := scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scan decision event: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decision events: %w", err)
	}
	return out, nil
}

func scanInto(row scanner) (*domain.DecisionRecord, error) {
	var (
		d       domain.DecisionRecord
		side    string
		code    string
		execute uint8
	)
	err := row.Scan(
		&d.ID, &d.Trader, &d.ConditionID, &d.TransactionHash, &side, &d.Price, &d.NotionalUSD,
		&execute, &code, &d.Reason, &d.SizeKind, &d.SizeValue,
		&d.NetExposureUSD, &d.EquityUSD, &d.AllocationPct, &d.Dominance, &d.EvaluatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Side = domain.Side(side)
	d.Code = domain.ReasonCode(code)
	d.ShouldExecute = execute == 1
	return &d, nil
}
