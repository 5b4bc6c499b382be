package strategy

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"polycopy/internal/domain"
)

// Engine defaults
const (
	DefaultSweepInterval     = 5 * time.Minute
	DefaultRetention         = 2 * time.Hour
	DefaultDedupRetention    = 24 * time.Hour
	DefaultDedupCapacity     = 50000
	DefaultMinNetExposureUSD = 25.0
	DefaultLookupTimeout     = 10 * time.Second

	// minEquityUSD is the equity below which allocation is treated as 0.
	minEquityUSD = 1.0
)

// Options configures an Engine. Zero values take defaults.
type Options struct {
	SweepInterval     time.Duration
	Retention         time.Duration
	DedupRetention    time.Duration
	DedupCapacity     int
	MinNetExposureUSD float64
	LookupTimeout     time.Duration
	Logger            *slog.Logger
	Now               func() time.Time
	State             *State // injected state, fresh if nil
}

func (o *Options) applyDefaults() {
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.Retention <= 0 {
		o.Retention = DefaultRetention
	}
	if o.DedupRetention <= 0 {
		o.DedupRetention = DefaultDedupRetention
	}
	if o.DedupCapacity <= 0 {
		o.DedupCapacity = DefaultDedupCapacity
	}
	if o.MinNetExposureUSD <= 0 {
		o.MinNetExposureUSD = DefaultMinNetExposureUSD
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = DefaultLookupTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.State == nil {
		o.State = NewState()
	}
}

// Engine evaluates trades of one tracked trader against its strategy.
// Safe for concurrent use.
type Engine struct {
	cfg     domain.StrategyConfig
	markets MarketProvider
	equity  EquitySource
	opts    Options
	state   *State
	logger  *slog.Logger
}

func newEngine(cfg domain.StrategyConfig, markets MarketProvider, equity EquitySource, opts Options) *Engine {
	opts.applyDefaults()
	return &Engine{
		cfg:     cfg,
		markets: markets,
		equity:  equity,
		opts:    opts,
		state:   opts.State,
		logger:  opts.Logger.With("trader", cfg.Label()),
	}
}

// Config returns the strategy configuration.
func (e *Engine) Config() domain.StrategyConfig { return e.cfg }

// State returns the engine's bookkeeping.
func (e *Engine) State() *State { return e.state }

// Evaluate runs trade through the gates in order and returns the first
// rejection, or an executable decision.
//
// An executable decision claims the market; the caller must report the
// outcome with Settle.
func (e *Engine) Evaluate(ctx context.Context, trade *domain.TradeEvent) domain.Decision {
	if trade == nil || trade.TransactionHash == "" || trade.ConditionID == "" {
		return domain.Reject(domain.ReasonInvalidSignal, "trade is missing transaction hash or condition id")
	}
	if trade.Size <= 0 || trade.Price <= 0 {
		return domain.Reject(domain.ReasonInvalidSignal, "non-positive size %.4f or price %.4f", trade.Size, trade.Price)
	}

	e.maybeSweep()

	market, err := e.lookupMarket(ctx, trade.ConditionID)
	if err != nil {
		return domain.Reject(domain.ReasonMarketNotFound, "market %s: %v", trade.ConditionID, err)
	}
	if !strings.EqualFold(market.ConditionID, trade.ConditionID) {
		return domain.Reject(domain.ReasonMarketNotFound,
			"lookup for %s returned market %q", trade.ConditionID, market.ConditionID)
	}
	// All bookkeeping is keyed by the signal's condition id.
	pinned := *market
	pinned.ConditionID = trade.ConditionID
	market = &pinned

	rec, decision, ok := e.accumulate(trade)
	if !ok {
		return decision
	}
	net := rec.Net()

	if lead := e.cfg.Conditions.MinTimeToResolutionMinutes; lead > 0 {
		if end, ok := market.EndTime(); ok {
			left := end.Sub(e.opts.Now()).Minutes()
			if left < lead {
				return withNet(domain.Reject(domain.ReasonTooCloseToResolution,
					"%.1f minutes to resolution, need %.1f", left, lead), net)
			}
		}
	}

	if floor := e.cfg.Conditions.IgnorePriceBelow; floor > 0 && trade.Price < floor {
		return withNet(domain.Reject(domain.ReasonPriceBelowFloor,
			"price %.4f below floor %.4f", trade.Price, floor), net)
	}

	if net < e.opts.MinNetExposureUSD {
		return withNet(domain.Reject(domain.ReasonExposureTooSmall,
			"net exposure $%.2f below $%.2f", net, e.opts.MinNetExposureUSD), net)
	}

	equity := e.targetEquity(ctx)
	alloc := 0.0
	if equity > minEquityUSD {
		alloc = net / equity
	}
	if minAlloc := e.cfg.Conditions.MinTraderPortfolioAlloc; alloc < minAlloc {
		d := domain.Reject(domain.ReasonAllocationBelowMin,
			"allocation %.2f%% of $%.2f equity below minimum %.2f%%", alloc*100, equity, minAlloc*100)
		d.NetExposureUSD, d.EquityUSD, d.AllocationPct = net, equity, alloc
		return d
	}

	dominance := rec.Dominance()
	if threshold := e.cfg.Conditions.SingleSideDominanceThreshold; threshold > 0 && dominance < threshold {
		d := domain.Reject(domain.ReasonDominanceBelowThreshold,
			"dominance %.2f%% below %.2f%%", dominance*100, threshold*100)
		d.NetExposureUSD, d.EquityUSD, d.AllocationPct, d.Dominance = net, equity, alloc, dominance
		return d
	}

	d := e.claim(trade.ConditionID, market, alloc)
	d.Market = market
	d.NetExposureUSD, d.EquityUSD, d.AllocationPct, d.Dominance = net, equity, alloc, dominance
	return d
}

// Settle releases the claim placed by an executable decision. conditionID
// must be the trade's condition id. When executed is true the market's
// latch is set, its execution count is incremented and, under the reset
// policy, its exposure record is dropped.
func (e *Engine) Settle(conditionID string, executed bool) {
	s := e.state
	s.mu.Lock()
	defer s.mu.Unlock()

	end, ok := s.inFlight[conditionID]
	delete(s.inFlight, conditionID)
	if !executed {
		return
	}
	if ok && !end.IsZero() {
		s.resolvesAt[conditionID] = end
	}
	s.latched[conditionID] = true
	s.executions[conditionID]++
	if e.cfg.ExposureReset == domain.ExposureReset {
		delete(s.exposures, conditionID)
	}
}

func (e *Engine) maybeSweep() {
	s := e.state
	now := e.opts.Now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) < e.opts.SweepInterval {
		s.mu.Unlock()
		return
	}
	s.lastSweep = now
	expired, forgotten := s.sweep(now.Add(-e.opts.Retention), now.Add(-e.opts.DedupRetention))
	resolved := s.forgetResolved(now)
	s.mu.Unlock()

	if expired > 0 || forgotten > 0 || resolved > 0 {
		e.logger.Debug("swept strategy state",
			"expired_markets", expired,
			"forgotten_hashes", forgotten,
			"resolved_markets", resolved,
		)
	}
}

func (e *Engine) lookupMarket(ctx context.Context, conditionID string) (*domain.MarketData, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.LookupTimeout)
	defer cancel()

	market, err := e.markets.Market(ctx, conditionID)
	if err != nil {
		if !errors.Is(err, domain.ErrMarketNotFound) {
			e.logger.Warn("market lookup failed", "condition_id", conditionID, "err", err)
		}
		return nil, err
	}
	if market == nil {
		return nil, domain.ErrMarketNotFound
	}
	return market, nil
}

// accumulate runs dedup, accumulation and the window gate atomically and
// returns a snapshot of the market's record.
func (e *Engine) accumulate(trade *domain.TradeEvent) (domain.MarketExposureRecord, domain.Decision, bool) {
	s := e.state
	now := e.opts.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen.contains(trade.TransactionHash) {
		return domain.MarketExposureRecord{}, domain.Reject(domain.ReasonDuplicateSignal,
			"transaction %s already processed", trade.TransactionHash), false
	}
	s.seen.add(trade.TransactionHash, now, e.opts.DedupCapacity)

	rec, ok := s.exposures[trade.ConditionID]
	if !ok {
		rec = &domain.MarketExposureRecord{ConditionID: trade.ConditionID, FirstSeenAt: now}
		s.exposures[trade.ConditionID] = rec
	}
	rec.Add(trade.Side, trade.NotionalUSD())

	if window := e.cfg.Conditions.TimeWindowMinutes; window > 0 {
		age := now.Sub(rec.FirstSeenAt)
		if age.Minutes() > window {
			delete(s.exposures, trade.ConditionID)
			return domain.MarketExposureRecord{}, domain.Reject(domain.ReasonWindowExpired,
				"exposure window of %.0f minutes elapsed (age %s)", window, age.Round(time.Second)), false
		}
	}

	return *rec, domain.Decision{}, true
}

// targetEquity returns max(cash balance, portfolio value) of the tracked
// trader. Both lookups run concurrently.
func (e *Engine) targetEquity(ctx context.Context) float64 {
	ctx, cancel := context.WithTimeout(ctx, e.opts.LookupTimeout)
	defer cancel()

	var (
		balance, portfolio float64
		wg                 sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		balance = e.equity.Balance(ctx, e.cfg.TraderAddress)
	}()
	go func() {
		defer wg.Done()
		portfolio = e.equity.PortfolioValue(ctx, e.cfg.TraderAddress)
	}()
	wg.Wait()

	return math.Max(balance, portfolio)
}

// claim runs the latch gate and sizing under the state lock and marks the
// market in flight on success.
func (e *Engine) claim(conditionID string, market *domain.MarketData, alloc float64) domain.Decision {
	s := e.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if !e.cfg.AllowMultipleExecutions {
		if s.latched[conditionID] {
			return domain.Reject(domain.ReasonAlreadyExecuted, "market %s already copied", conditionID)
		}
	} else if limit := e.cfg.Conditions.MaxExecutionsPerMarket; limit > 0 && s.executions[conditionID] >= limit {
		return domain.Reject(domain.ReasonMaxExecutions,
			"market %s reached %d executions", conditionID, limit)
	}
	if _, busy := s.inFlight[conditionID]; busy {
		return domain.Reject(domain.ReasonExecutionInFlight, "market %s has an execution in flight", conditionID)
	}

	rule, ok := e.cfg.Sizing.Lookup(alloc)
	if !ok {
		return domain.Reject(domain.ReasonNoSizingTier, "allocation %.2f%% matches no sizing tier", alloc*100)
	}
	size := rule.Size(e.cfg.Sizing.Mode)
	if size.IsZero() {
		return domain.Reject(domain.ReasonNoSizingTier, "sizing tier for %.2f%% has zero size", alloc*100)
	}

	end, _ := market.EndTime()
	s.inFlight[conditionID] = end
	return domain.Decision{
		ShouldExecute: true,
		Size:          size,
		Code:          domain.ReasonMatched,
		Reason: "allocation " + pct(alloc) + " in tier [" + pct(rule.MinTraderAlloc) + ", " +
			pct(rule.MaxTraderAlloc) + "), size " + size.String(),
	}
}

func withNet(d domain.Decision, net float64) domain.Decision {
	d.NetExposureUSD = net
	return d
}

// pct formats a fraction as a percentage, "inf" for an unbounded tier.
func pct(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	return strconv.FormatFloat(f*100, 'f', 2, 64) + "%"
}
