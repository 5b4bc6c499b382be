package strategy

import (
	"errors"
	"fmt"

	"polycopy/internal/domain"
)

// Construction errors
var (
	ErrMissingMarketProvider = errors.New("market provider is required")
	ErrMissingEquitySource   = errors.New("equity source is required")
)

// FromConfig creates an Engine for cfg with a fresh State.
// Returns a *domain.ConfigError for an unusable strategy configuration.
func FromConfig(cfg domain.StrategyConfig, markets MarketProvider, equity EquitySource, opts Options) (*Engine, error) {
	if cfg.TraderAddress == "" {
		return nil, &domain.ConfigError{Field: "trader_address", Msg: "is required"}
	}
	if err := cfg.Sizing.Validate(); err != nil {
		return nil, &domain.ConfigError{Field: "sizing", Msg: err.Error()}
	}
	if cfg.AllowMultipleExecutions && cfg.Conditions.MaxExecutionsPerMarket < 1 {
		return nil, &domain.ConfigError{
			Field: "max_executions_per_market",
			Msg:   fmt.Sprintf("must be >= 1 with multiple executions, got %d", cfg.Conditions.MaxExecutionsPerMarket),
		}
	}
	if markets == nil {
		return nil, ErrMissingMarketProvider
	}
	if equity == nil {
		return nil, ErrMissingEquitySource
	}

	return newEngine(cfg, markets, equity, opts), nil
}
