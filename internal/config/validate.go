package config

import (
	"fmt"
	"math"

	"polycopy/internal/domain"
)

// Validate checks that all required fields are set and values are valid.
// Errors are *domain.ConfigError.
func (c *Config) Validate() error {
	if len(c.Strategies) == 0 {
		return &domain.ConfigError{Field: "strategies", Msg: "at least one strategy is required"}
	}

	switch c.Source.Mode {
	case SourcePoll, SourceStream:
	default:
		return &domain.ConfigError{Field: "source.mode", Msg: fmt.Sprintf("must be poll or stream, got %q", c.Source.Mode)}
	}
	if c.Source.PollInterval <= 0 {
		return &domain.ConfigError{Field: "source.poll_interval", Msg: "must be positive"}
	}

	switch c.Executor.Mode {
	case ExecutorPaper:
	case ExecutorLive:
		if c.Wallet.Address == "" {
			return &domain.ConfigError{Field: "wallet.address", Msg: "is required in live mode"}
		}
	default:
		return &domain.ConfigError{Field: "executor.mode", Msg: fmt.Sprintf("must be paper or live, got %q", c.Executor.Mode)}
	}
	if c.Executor.GlobalAllocation <= 0 || c.Executor.GlobalAllocation > 1 {
		return &domain.ConfigError{Field: "executor.global_allocation", Msg: "must be in (0, 1]"}
	}
	if c.Executor.DefaultTickSize <= 0 || c.Executor.DefaultTickSize >= 1 {
		return &domain.ConfigError{Field: "executor.default_tick_size", Msg: "must be in (0, 1)"}
	}

	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return &domain.ConfigError{Field: "storage.postgres_dsn", Msg: "is required for postgres backend"}
		}
	default:
		return &domain.ConfigError{Field: "storage.backend", Msg: fmt.Sprintf("must be memory or postgres, got %q", c.Storage.Backend)}
	}

	if c.Engine.DedupCapacity < 1 {
		return &domain.ConfigError{Field: "engine.dedup_capacity", Msg: "must be >= 1"}
	}

	seen := make(map[string]int, len(c.Strategies))
	for i := range c.Strategies {
		prefix := fmt.Sprintf("strategies[%d]", i)
		if err := c.Strategies[i].validate(prefix); err != nil {
			return err
		}
		addr := c.Strategies[i].Domain().TraderAddress
		if j, dup := seen[addr]; dup {
			return &domain.ConfigError{Field: prefix + ".trader_address", Msg: fmt.Sprintf("duplicates strategies[%d]", j)}
		}
		seen[addr] = i
	}

	return nil
}

func (s *StrategyConfig) validate(prefix string) error {
	if s.TraderAddress == "" {
		return &domain.ConfigError{Field: prefix + ".trader_address", Msg: "is required"}
	}

	switch domain.StrategyType(s.StrategyType) {
	case domain.StrategyDiversifiedCopy, domain.StrategyCertaintySniper:
	default:
		return &domain.ConfigError{Field: prefix + ".strategy_type", Msg: fmt.Sprintf("unknown type %q", s.StrategyType)}
	}

	switch domain.ExposurePolicy(s.ExposureReset) {
	case domain.ExposureRetain, domain.ExposureReset:
	default:
		return &domain.ConfigError{Field: prefix + ".exposure_reset", Msg: fmt.Sprintf("must be retain or reset, got %q", s.ExposureReset)}
	}

	fractions := []struct {
		field string
		value *float64
	}{
		{"conditions.min_trader_portfolio_alloc", s.Conditions.MinTraderPortfolioAlloc},
		{"conditions.single_side_dominance_threshold", s.Conditions.SingleSideDominanceThreshold},
		{"conditions.ignore_price_below", s.Conditions.IgnorePriceBelow},
		{"risk.max_total_open_exposure", s.Risk.MaxTotalOpenExposure},
		{"risk.max_single_market_exposure", s.Risk.MaxSingleMarketExposure},
		{"risk.max_single_trade_size", s.Risk.MaxSingleTradeSize},
	}
	for _, f := range fractions {
		if v := deref(f.value); v < 0 || v > 1 || math.IsNaN(v) {
			return &domain.ConfigError{Field: prefix + "." + f.field, Msg: fmt.Sprintf("must be in [0, 1], got %v", v)}
		}
	}

	if deref(s.Conditions.MaxExecutionsPerMarket) < 1 {
		return &domain.ConfigError{Field: prefix + ".conditions.max_executions_per_market", Msg: "must be >= 1"}
	}
	if deref(s.Conditions.TimeWindowMinutes) < 0 || deref(s.Conditions.MinTimeToResolutionMinutes) < 0 {
		return &domain.ConfigError{Field: prefix + ".conditions", Msg: "minute thresholds must be >= 0"}
	}
	if deref(s.Risk.MaxOpenPositions) < 0 {
		return &domain.ConfigError{Field: prefix + ".risk.max_open_positions", Msg: "must be >= 0"}
	}

	mode := domain.SizingMode(s.Sizing.Mode)
	if mode != domain.SizingFixedTiers && mode != domain.SizingWalletScaled {
		return &domain.ConfigError{Field: prefix + ".sizing.mode", Msg: fmt.Sprintf("unknown mode %q", s.Sizing.Mode)}
	}
	sizing := s.Domain().Sizing
	if err := sizing.Validate(); err != nil {
		return &domain.ConfigError{Field: prefix + ".sizing", Msg: err.Error()}
	}
	for i, r := range sizing.Rules {
		if r.Size(mode).IsZero() {
			return &domain.ConfigError{Field: fmt.Sprintf("%s.sizing.rules[%d]", prefix, i), Msg: fmt.Sprintf("no positive size for mode %s", mode)}
		}
	}

	return nil
}
