// Package config loads the copybot YAML configuration.
package config

import (
	"strings"
	"time"

	"polycopy/internal/domain"
)

// Config is the root configuration.
type Config struct {
	Wallet     WalletConfig     `yaml:"wallet"`
	API        APIConfig        `yaml:"api"`
	Signer     SignerConfig     `yaml:"signer"`
	Source     SourceConfig     `yaml:"source"`
	Engine     EngineConfig     `yaml:"engine"`
	Valuation  ValuationConfig  `yaml:"valuation"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Storage    StorageConfig    `yaml:"storage"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Strategies []StrategyConfig `yaml:"strategies"`
}

// WalletConfig identifies the operator wallet and how to read its balance.
type WalletConfig struct {
	Address      string `yaml:"address"`
	RPCURL       string `yaml:"rpc_url"`
	USDCContract string `yaml:"usdc_contract"`
	USDCDecimals int32  `yaml:"usdc_decimals"`
}

// APIConfig holds Polymarket endpoints.
type APIConfig struct {
	GammaURL     string        `yaml:"gamma_url"`
	DataURL      string        `yaml:"data_url"`
	CLOBURL      string        `yaml:"clob_url"`
	WSURL        string        `yaml:"ws_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// SignerConfig points at the order-signing sidecar.
type SignerConfig struct {
	SidecarURL string        `yaml:"sidecar_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Source modes
const (
	SourcePoll   = "poll"
	SourceStream = "stream"
)

// SourceConfig selects and tunes the signal source.
type SourceConfig struct {
	Mode         string        `yaml:"mode"`
	PollInterval time.Duration `yaml:"poll_interval"`
	TradeLimit   int           `yaml:"trade_limit"`
	MaxBackoff   time.Duration `yaml:"max_backoff"`
	SeenCapacity int           `yaml:"seen_capacity"`
}

// EngineConfig tunes strategy engine bookkeeping.
type EngineConfig struct {
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	Retention         time.Duration `yaml:"retention"`
	DedupRetention    time.Duration `yaml:"dedup_retention"`
	DedupCapacity     int           `yaml:"dedup_capacity"`
	MinNetExposureUSD float64       `yaml:"min_net_exposure_usd"`
	LookupTimeout     time.Duration `yaml:"lookup_timeout"`
}

// ValuationConfig sets the fallbacks used when target equity is unknown.
type ValuationConfig struct {
	FallbackPortfolioValue float64 `yaml:"fallback_portfolio_value"`
	MinPortfolioValue      float64 `yaml:"min_portfolio_value"`
}

// Executor modes
const (
	ExecutorPaper = "paper"
	ExecutorLive  = "live"
)

// ExecutorConfig tunes order construction.
type ExecutorConfig struct {
	Mode             string        `yaml:"mode"`
	GlobalAllocation float64       `yaml:"global_allocation"`
	MinShares        float64       `yaml:"min_shares"`
	DefaultTickSize  float64       `yaml:"default_tick_size"`
	OrderTimeout     time.Duration `yaml:"order_timeout"`
	PaperBalance     float64       `yaml:"paper_balance"`
}

// Storage backends
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// StorageConfig selects where audit records go.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"` // optional analytics sink
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

// StrategyConfig is one tracked trader.
type StrategyConfig struct {
	TraderAddress           string           `yaml:"trader_address"`
	Alias                   string           `yaml:"alias"`
	StrategyType            string           `yaml:"strategy_type"`
	AllowMultipleExecutions bool             `yaml:"allow_multiple_executions"`
	ExposureReset           string           `yaml:"exposure_reset"`
	Conditions              ConditionsConfig `yaml:"conditions"`
	Sizing                  SizingConfig     `yaml:"sizing"`
	Risk                    RiskConfig       `yaml:"risk"`
}

// ConditionsConfig holds gate thresholds. Nil fields take defaults;
// an explicit 0 disables an optional gate.
type ConditionsConfig struct {
	MinTraderPortfolioAlloc      *float64 `yaml:"min_trader_portfolio_alloc"`
	MaxExecutionsPerMarket       *int     `yaml:"max_executions_per_market"`
	MinTimeToResolutionMinutes   *float64 `yaml:"min_time_to_resolution_minutes"`
	SingleSideDominanceThreshold *float64 `yaml:"single_side_dominance_threshold"`
	IgnorePriceBelow             *float64 `yaml:"ignore_price_below"`
	TimeWindowMinutes            *float64 `yaml:"time_window_minutes"`
}

// SizingConfig is the ordered tier table.
type SizingConfig struct {
	Mode  string       `yaml:"mode"`
	Rules []SizingRule `yaml:"rules"`
}

// SizingRule is one [min, max) tier. A max of 0 or .inf is unbounded.
type SizingRule struct {
	MinTraderAlloc  float64 `yaml:"min_trader_alloc"`
	MaxTraderAlloc  float64 `yaml:"max_trader_alloc"`
	CopySizeRatio   float64 `yaml:"copy_size_ratio"`
	CopyWalletRatio float64 `yaml:"copy_wallet_ratio"`
	CopyUSD         float64 `yaml:"copy_usd"`
}

// RiskConfig holds executor caps as fractions of spendable capital.
type RiskConfig struct {
	MaxTotalOpenExposure    *float64 `yaml:"max_total_open_exposure"`
	MaxSingleMarketExposure *float64 `yaml:"max_single_market_exposure"`
	MaxSingleTradeSize      *float64 `yaml:"max_single_trade_size"`
	MaxOpenPositions        *int     `yaml:"max_open_positions"`
}

// Domain converts a defaulted strategy into its domain form.
func (s *StrategyConfig) Domain() domain.StrategyConfig {
	rules := make([]domain.SizingRule, len(s.Sizing.Rules))
	for i, r := range s.Sizing.Rules {
		rules[i] = domain.SizingRule(r)
	}

	return domain.StrategyConfig{
		TraderAddress: strings.ToLower(s.TraderAddress),
		Alias:         s.Alias,
		Type:          domain.StrategyType(s.StrategyType),
		Conditions: domain.CopyConditions{
			MinTraderPortfolioAlloc:      deref(s.Conditions.MinTraderPortfolioAlloc),
			MaxExecutionsPerMarket:       deref(s.Conditions.MaxExecutionsPerMarket),
			MinTimeToResolutionMinutes:   deref(s.Conditions.MinTimeToResolutionMinutes),
			SingleSideDominanceThreshold: deref(s.Conditions.SingleSideDominanceThreshold),
			IgnorePriceBelow:             deref(s.Conditions.IgnorePriceBelow),
			TimeWindowMinutes:            deref(s.Conditions.TimeWindowMinutes),
		},
		Sizing: domain.SizingConfig{
			Mode:  domain.SizingMode(s.Sizing.Mode),
			Rules: rules,
		},
		Risk: domain.RiskControls{
			MaxTotalOpenExposure:    deref(s.Risk.MaxTotalOpenExposure),
			MaxSingleMarketExposure: deref(s.Risk.MaxSingleMarketExposure),
			MaxSingleTradeSize:      deref(s.Risk.MaxSingleTradeSize),
			MaxOpenPositions:        deref(s.Risk.MaxOpenPositions),
		},
		AllowMultipleExecutions: s.AllowMultipleExecutions,
		ExposureReset:           domain.ExposurePolicy(s.ExposureReset),
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
