package domain

import "strings"

// Side is the direction of a trade on an outcome token.
type Side string

// Trade side constants
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalises an upstream side string. Returns false for anything
// other than buy/sell.
func ParseSide(s string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(SideBuy):
		return SideBuy, true
	case string(SideSell):
		return SideSell, true
	}
	return "", false
}

// TradeEvent is a normalised trade executed by a tracked wallet.
// Immutable once emitted by a signal source.
type TradeEvent struct {
	User            string  // tracked wallet address (lowercase hex)
	Asset           string  // outcome token id
	Side            Side    // BUY | SELL
	Size            float64 // shares
	Price           float64 // 0..1
	TransactionHash string  // dedup key
	ConditionID     string  // market identifier
	Outcome         string  // outcome label ("Yes", "No", ...)
	Title           string  // market title, informational
	Timestamp       int64   // Unix timestamp in seconds
}

// NotionalUSD returns size * price.
func (t *TradeEvent) NotionalUSD() float64 {
	return t.Size * t.Price
}
