package domain

import (
	"fmt"
	"math"
)

// StrategyType labels the intent of a strategy. Informational only.
type StrategyType string

// Strategy type constants
const (
	StrategyDiversifiedCopy StrategyType = "DIVERSIFIED_COPY"
	StrategyCertaintySniper StrategyType = "CERTAINTY_SNIPER"
)

// SizingMode selects which ratio of a SizingRule is applied.
type SizingMode string

// Sizing mode constants
const (
	SizingFixedTiers   SizingMode = "FIXED_TIERS"   // CopySizeRatio of capital
	SizingWalletScaled SizingMode = "WALLET_SCALED" // CopyWalletRatio of capital
)

// ExposurePolicy controls what happens to a market's aggregated exposure
// after a successful copy.
type ExposurePolicy string

// Exposure policy constants
const (
	ExposureRetain ExposurePolicy = "retain" // keep accumulating until window/sweep
	ExposureReset  ExposurePolicy = "reset"  // drop the record after execution
)

// CopyConditions are the gating thresholds of a strategy.
// Zero disables the optional gates.
type CopyConditions struct {
	MinTraderPortfolioAlloc      float64 // fraction in [0,1]
	MaxExecutionsPerMarket       int     // multi-shot bound
	MinTimeToResolutionMinutes   float64 // optional
	SingleSideDominanceThreshold float64 // optional, fraction
	IgnorePriceBelow             float64 // optional noise floor
	TimeWindowMinutes            float64 // optional aggregation window
}

// SizingRule maps an allocation interval [MinTraderAlloc, MaxTraderAlloc)
// to a copy size. MaxTraderAlloc of +Inf is unbounded.
type SizingRule struct {
	MinTraderAlloc  float64
	MaxTraderAlloc  float64
	CopySizeRatio   float64 // FIXED_TIERS
	CopyWalletRatio float64 // WALLET_SCALED
	CopyUSD         float64 // absolute override, either mode
}

// Contains reports whether alloc falls in [min, max).
func (r SizingRule) Contains(alloc float64) bool {
	return alloc >= r.MinTraderAlloc && alloc < r.MaxTraderAlloc
}

// Size returns the copy size of the rule under mode.
func (r SizingRule) Size(mode SizingMode) Size {
	if r.CopyUSD > 0 {
		return AbsoluteUSD(r.CopyUSD)
	}
	if mode == SizingWalletScaled {
		return RatioOfCapital(r.CopyWalletRatio)
	}
	return RatioOfCapital(r.CopySizeRatio)
}

// SizingConfig is an ordered, non-overlapping set of sizing rules.
type SizingConfig struct {
	Mode  SizingMode
	Rules []SizingRule
}

// Lookup returns the unique rule containing alloc.
func (s SizingConfig) Lookup(alloc float64) (SizingRule, bool) {
	for _, r := range s.Rules {
		if r.Contains(alloc) {
			return r, true
		}
	}
	return SizingRule{}, false
}

// Validate checks that every rule is a proper interval and that no two
// rules overlap.
func (s SizingConfig) Validate() error {
	for i, r := range s.Rules {
		if math.IsNaN(r.MinTraderAlloc) || math.IsNaN(r.MaxTraderAlloc) || r.MinTraderAlloc < 0 {
			return fmt.Errorf("sizing rule %d: invalid bounds", i)
		}
		if r.MinTraderAlloc >= r.MaxTraderAlloc {
			return fmt.Errorf("sizing rule %d: min %.4f must be below max %.4f", i, r.MinTraderAlloc, r.MaxTraderAlloc)
		}
		for j := 0; j < i; j++ {
			o := s.Rules[j]
			if r.MinTraderAlloc < o.MaxTraderAlloc && o.MinTraderAlloc < r.MaxTraderAlloc {
				return fmt.Errorf("sizing rules %d and %d overlap", j, i)
			}
		}
	}
	return nil
}

// RiskControls are capital-relative caps applied by the executor.
// Fractions are of spendable capital.
type RiskControls struct {
	MaxTotalOpenExposure    float64
	MaxSingleMarketExposure float64
	MaxSingleTradeSize      float64
	MaxOpenPositions        int // 0 = unlimited
}

// StrategyConfig is the immutable configuration of one tracked trader.
type StrategyConfig struct {
	TraderAddress           string
	Alias                   string
	Type                    StrategyType
	Conditions              CopyConditions
	Sizing                  SizingConfig
	Risk                    RiskControls
	AllowMultipleExecutions bool
	ExposureReset           ExposurePolicy
}

// Label returns the alias, or the trader address when no alias is set.
func (c *StrategyConfig) Label() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.TraderAddress
}
