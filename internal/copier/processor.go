// Package copier wires signal sources to strategy engines and executors.
// Flow: source → router → processor (engine → decision → executor) → broker
package copier

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"polycopy/internal/domain"
	"polycopy/internal/executor"
	"polycopy/internal/observability"
	"polycopy/internal/storage"
)

// Evaluator decides on trades of one trader. Implemented by strategy.Engine.
type Evaluator interface {
	Evaluate(ctx context.Context, trade *domain.TradeEvent) domain.Decision
	Settle(conditionID string, executed bool)
	Config() domain.StrategyConfig
}

// Executor places orders for executable decisions. Implemented by
// executor.Executor.
type Executor interface {
	Execute(ctx context.Context, d domain.Decision, cfg domain.StrategyConfig, side domain.Side, outcomeIndex int, price float64) (*executor.Result, error)
}

// Options for creating a Processor. Stores and metrics are optional.
type Options struct {
	Decisions []storage.DecisionWriter
	Orders    storage.OrderWriter
	Metrics   *observability.Metrics
	Exposure  *executor.ExposureState // reported to metrics after each order
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Outcome is what HandleTrade did with one trade.
type Outcome struct {
	Decision domain.DecisionRecord
	Order    *domain.OrderRecord // nil when no execution was attempted
}

// Processor handles the trades of one tracked trader.
type Processor struct {
	engine   Evaluator
	executor Executor
	cfg      domain.StrategyConfig
	trader   string

	decisions []storage.DecisionWriter
	orders    storage.OrderWriter
	metrics   *observability.Metrics
	exposure  *executor.ExposureState
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewProcessor creates a Processor for engine's trader.
func NewProcessor(engine Evaluator, exec Executor, opts Options) *Processor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	cfg := engine.Config()
	return &Processor{
		engine:    engine,
		executor:  exec,
		cfg:       cfg,
		trader:    cfg.Label(),
		decisions: opts.Decisions,
		orders:    opts.Orders,
		metrics:   opts.Metrics,
		exposure:  opts.Exposure,
		logger:    opts.Logger.With("trader", cfg.Label()),
		now:       opts.Now,
		newID:     opts.NewID,
	}
}

// Trader returns the tracked wallet address in lowercase.
func (p *Processor) Trader() string {
	return normalizeAddress(p.cfg.TraderAddress)
}

// HandleTrade evaluates a trade and executes it when the strategy says so.
// Failures are logged and recorded, never returned.
func (p *Processor) HandleTrade(ctx context.Context, trade domain.TradeEvent) Outcome {
	p.metrics.RecordSignal(p.trader, float64(trade.Timestamp))

	start := p.now()
	d := p.engine.Evaluate(ctx, &trade)
	p.metrics.RecordDecision(p.trader, string(d.Code), p.now().Sub(start).Seconds())

	out := Outcome{Decision: p.decisionRecord(trade, d, start)}
	p.saveDecision(ctx, out.Decision)

	if !d.ShouldExecute {
		p.logger.Debug("trade skipped",
			"condition_id", trade.ConditionID,
			"tx", trade.TransactionHash,
			"code", d.Code,
			"reason", d.Reason,
		)
		return out
	}

	p.logger.Info("copying trade",
		"condition_id", trade.ConditionID,
		"side", trade.Side,
		"price", trade.Price,
		"size", d.Size.String(),
	)

	if d.Market == nil {
		p.engine.Settle(trade.ConditionID, false)
		return out
	}
	outcomeIndex := d.Market.OutcomeIndex(trade.Asset)
	execStart := p.now()
	result, err := p.executor.Execute(ctx, d, p.cfg, trade.Side, outcomeIndex, trade.Price)
	placed := err == nil && result != nil && result.Receipt != nil
	p.engine.Settle(trade.ConditionID, placed)
	if result == nil && err == nil {
		return out
	}

	order := p.orderRecord(trade, d, result, err)
	out.Order = &order
	p.saveOrder(ctx, order)

	p.metrics.RecordOrder(p.trader, order.Status, placed, order.SizeUSD, p.now().Sub(execStart).Seconds())
	if p.exposure != nil {
		snap := p.exposure.Snapshot()
		p.metrics.SetExposure(snap.SessionTotalUSD, len(snap.PerMarketUSD))
	}

	if err != nil {
		p.logger.Warn("copy not placed",
			"condition_id", d.Market.ConditionID,
			"status", order.Status,
			"err", err,
		)
	}
	return out
}

func (p *Processor) decisionRecord(trade domain.TradeEvent, d domain.Decision, at time.Time) domain.DecisionRecord {
	conditionID := trade.ConditionID
	if d.Market != nil && d.Market.ConditionID != "" {
		conditionID = d.Market.ConditionID
	}
	return domain.DecisionRecord{
		ID:              p.newID(),
		Trader:          p.Trader(),
		ConditionID:     conditionID,
		TransactionHash: trade.TransactionHash,
		Side:            trade.Side,
		Price:           trade.Price,
		NotionalUSD:     trade.NotionalUSD(),
		ShouldExecute:   d.ShouldExecute,
		Code:            d.Code,
		Reason:          d.Reason,
		SizeKind:        d.Size.Kind().String(),
		SizeValue:       d.Size.Value(),
		NetExposureUSD:  d.NetExposureUSD,
		EquityUSD:       d.EquityUSD,
		AllocationPct:   d.AllocationPct,
		Dominance:       d.Dominance,
		EvaluatedAt:     at.UnixMilli(),
	}
}

func (p *Processor) orderRecord(trade domain.TradeEvent, d domain.Decision, result *executor.Result, err error) domain.OrderRecord {
	rec := domain.OrderRecord{
		ID:          p.newID(),
		Trader:      p.Trader(),
		ConditionID: d.Market.ConditionID,
		Side:        trade.Side,
		LimitPrice:  trade.Price,
		Status:      orderStatus(err),
		CreatedAt:   p.now().UnixMilli(),
	}
	if result != nil {
		if result.Order.ClientOrderID != "" {
			rec.ID = result.Order.ClientOrderID
		}
		rec.TokenID = result.Order.TokenID
		rec.SizeUSD = result.SizeUSD
		rec.Shares = result.Order.Shares
		if result.Order.Price > 0 {
			rec.LimitPrice = result.Order.Price
		}
		rec.TickSize = result.Order.TickSize
		rec.NegRisk = result.Order.NegRisk
		if result.Receipt != nil {
			rec.BrokerOrderID = result.Receipt.OrderID
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// orderStatus maps an Execute error onto an OrderRecord status.
func orderStatus(err error) string {
	switch {
	case err == nil:
		return domain.OrderStatusPlaced
	case errors.Is(err, domain.ErrCredentialsUnavailable):
		return domain.OrderStatusDisabled
	case errors.Is(err, domain.ErrOrderRejected):
		return domain.OrderStatusFailed
	}
	return domain.OrderStatusBlocked
}

func (p *Processor) saveDecision(ctx context.Context, rec domain.DecisionRecord) {
	for _, w := range p.decisions {
		if err := w.Insert(ctx, &rec); err != nil {
			p.logger.Error("store decision failed", "id", rec.ID, "err", err)
			p.metrics.RecordStoreError("decisions")
		}
	}
}

func (p *Processor) saveOrder(ctx context.Context, rec domain.OrderRecord) {
	if p.orders == nil {
		return
	}
	if err := p.orders.Insert(ctx, &rec); err != nil {
		p.logger.Error("store order failed", "id", rec.ID, "err", err)
		p.metrics.RecordStoreError("orders")
	}
}
