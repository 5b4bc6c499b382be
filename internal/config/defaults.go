package config

import (
	"math"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultGammaURL     = "https://gamma-api.polymarket.com"
	DefaultDataURL      = "https://data-api.polymarket.com"
	DefaultCLOBURL      = "https://clob.polymarket.com"
	DefaultWSURL        = "wss://ws-subscriptions-clob.polymarket.com/ws/market"
	DefaultRPCURL       = "https://polygon-rpc.com"
	DefaultUSDCContract = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174" // USDC.e on Polygon
	DefaultUSDCDecimals = 6
	DefaultAPITimeout   = 10 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultSignerURL    = "http://127.0.0.1:8787"

	DefaultPollInterval = 2 * time.Second
	DefaultTradeLimit   = 10
	DefaultMaxBackoff   = time.Minute
	DefaultSeenCapacity = 1000

	DefaultSweepInterval     = 5 * time.Minute
	DefaultRetention         = 2 * time.Hour
	DefaultDedupRetention    = 24 * time.Hour
	DefaultDedupCapacity     = 50000
	DefaultMinNetExposureUSD = 25.0
	DefaultLookupTimeout     = 10 * time.Second

	DefaultFallbackPortfolioValue = 1000.0
	DefaultMinPortfolioValue      = 100.0

	DefaultGlobalAllocation = 1.0
	DefaultMinShares        = 1.0
	DefaultTickSize         = 0.01
	DefaultOrderTimeout     = 15 * time.Second
	DefaultPaperBalance     = 1000.0

	DefaultMetricsAddr      = ":9090"
	DefaultMetricsNamespace = "polycopy"

	DefaultMinTraderPortfolioAlloc      = 0.12
	DefaultMaxExecutionsPerMarket       = 5
	DefaultSingleSideDominanceThreshold = 0.90
	DefaultIgnorePriceBelow             = 0.03
	DefaultTimeWindowMinutes            = 10.0

	DefaultMaxTotalOpenExposure    = 0.75
	DefaultMaxSingleMarketExposure = 0.22
	DefaultMaxSingleTradeSize      = 0.02
	DefaultMaxOpenPositions        = 6
)

// DefaultSizingRules returns the two-tier table used when none is configured.
func DefaultSizingRules() []SizingRule {
	return []SizingRule{
		{MinTraderAlloc: 0.12, MaxTraderAlloc: 0.20, CopySizeRatio: 0.015, CopyWalletRatio: 0.015},
		{MinTraderAlloc: 0.20, MaxTraderAlloc: math.Inf(1), CopySizeRatio: 0.025, CopyWalletRatio: 0.025},
	}
}

func (c *Config) applyDefaults() {
	// Wallet defaults
	if c.Wallet.RPCURL == "" {
		c.Wallet.RPCURL = DefaultRPCURL
	}
	if c.Wallet.USDCContract == "" {
		c.Wallet.USDCContract = DefaultUSDCContract
	}
	if c.Wallet.USDCDecimals == 0 {
		c.Wallet.USDCDecimals = DefaultUSDCDecimals
	}

	// API defaults
	setDefault(&c.API.GammaURL, DefaultGammaURL)
	setDefault(&c.API.DataURL, DefaultDataURL)
	setDefault(&c.API.CLOBURL, DefaultCLOBURL)
	setDefault(&c.API.WSURL, DefaultWSURL)
	setDefault(&c.API.Timeout, DefaultAPITimeout)
	setDefault(&c.API.MaxRetries, DefaultMaxRetries)
	setDefault(&c.API.RetryBackoff, DefaultRetryBackoff)
	setDefault(&c.Signer.SidecarURL, DefaultSignerURL)
	setDefault(&c.Signer.Timeout, DefaultAPITimeout)

	// Source defaults
	setDefault(&c.Source.Mode, SourcePoll)
	setDefault(&c.Source.PollInterval, DefaultPollInterval)
	setDefault(&c.Source.TradeLimit, DefaultTradeLimit)
	setDefault(&c.Source.MaxBackoff, DefaultMaxBackoff)
	setDefault(&c.Source.SeenCapacity, DefaultSeenCapacity)

	// Engine defaults
	setDefault(&c.Engine.SweepInterval, DefaultSweepInterval)
	setDefault(&c.Engine.Retention, DefaultRetention)
	setDefault(&c.Engine.DedupRetention, DefaultDedupRetention)
	setDefault(&c.Engine.DedupCapacity, DefaultDedupCapacity)
	setDefault(&c.Engine.MinNetExposureUSD, DefaultMinNetExposureUSD)
	setDefault(&c.Engine.LookupTimeout, DefaultLookupTimeout)

	setDefault(&c.Valuation.FallbackPortfolioValue, DefaultFallbackPortfolioValue)
	setDefault(&c.Valuation.MinPortfolioValue, DefaultMinPortfolioValue)

	// Executor defaults
	setDefault(&c.Executor.Mode, ExecutorPaper)
	setDefault(&c.Executor.GlobalAllocation, DefaultGlobalAllocation)
	setDefault(&c.Executor.MinShares, DefaultMinShares)
	setDefault(&c.Executor.DefaultTickSize, DefaultTickSize)
	setDefault(&c.Executor.OrderTimeout, DefaultOrderTimeout)
	setDefault(&c.Executor.PaperBalance, DefaultPaperBalance)

	setDefault(&c.Storage.Backend, StorageMemory)
	setDefault(&c.Metrics.Addr, DefaultMetricsAddr)
	setDefault(&c.Metrics.Namespace, DefaultMetricsNamespace)

	for i := range c.Strategies {
		c.Strategies[i].applyDefaults()
	}
}

func (s *StrategyConfig) applyDefaults() {
	setDefault(&s.StrategyType, "DIVERSIFIED_COPY")
	setDefault(&s.ExposureReset, "retain")
	setDefault(&s.Sizing.Mode, "FIXED_TIERS")

	setDefaultPtr(&s.Conditions.MinTraderPortfolioAlloc, DefaultMinTraderPortfolioAlloc)
	setDefaultPtr(&s.Conditions.MaxExecutionsPerMarket, DefaultMaxExecutionsPerMarket)
	setDefaultPtr(&s.Conditions.MinTimeToResolutionMinutes, 0)
	setDefaultPtr(&s.Conditions.SingleSideDominanceThreshold, DefaultSingleSideDominanceThreshold)
	setDefaultPtr(&s.Conditions.IgnorePriceBelow, DefaultIgnorePriceBelow)
	setDefaultPtr(&s.Conditions.TimeWindowMinutes, DefaultTimeWindowMinutes)

	setDefaultPtr(&s.Risk.MaxTotalOpenExposure, DefaultMaxTotalOpenExposure)
	setDefaultPtr(&s.Risk.MaxSingleMarketExposure, DefaultMaxSingleMarketExposure)
	setDefaultPtr(&s.Risk.MaxSingleTradeSize, DefaultMaxSingleTradeSize)
	setDefaultPtr(&s.Risk.MaxOpenPositions, DefaultMaxOpenPositions)

	if len(s.Sizing.Rules) == 0 {
		s.Sizing.Rules = DefaultSizingRules()
	}
	for i := range s.Sizing.Rules {
		if s.Sizing.Rules[i].MaxTraderAlloc == 0 {
			s.Sizing.Rules[i].MaxTraderAlloc = math.Inf(1)
		}
	}
}

func setDefault[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

func setDefaultPtr[T any](field **T, def T) {
	if *field == nil {
		v := def
		*field = &v
	}
}
