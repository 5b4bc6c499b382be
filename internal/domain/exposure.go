package domain

import (
	"math"
	"time"
)

// MarketExposureRecord aggregates a tracked trader's notional in one market.
// At most one live record exists per market.
type MarketExposureRecord struct {
	ConditionID string
	BuyUSD      float64
	SellUSD     float64
	FirstSeenAt time.Time
}

// Net returns |buy - sell|.
func (r *MarketExposureRecord) Net() float64 {
	return math.Abs(r.BuyUSD - r.SellUSD)
}

// Dominance returns max(buy,sell)/(buy+sell), 0 when empty.
func (r *MarketExposureRecord) Dominance() float64 {
	total := r.BuyUSD + r.SellUSD
	if total <= 0 {
		return 0
	}
	return math.Max(r.BuyUSD, r.SellUSD) / total
}

// Add accumulates notional on side.
func (r *MarketExposureRecord) Add(side Side, notional float64) {
	if side == SideSell {
		r.SellUSD += notional
		return
	}
	r.BuyUSD += notional
}
