// Package strategy decides whether a tracked trader's activity in a market
// is worth copying and how large the copy should be.
package strategy

import (
	"context"

	"polycopy/internal/domain"
)

// MarketProvider resolves market metadata.
type MarketProvider interface {
	// Market returns metadata for conditionID. Returns domain.ErrMarketNotFound
	// when the market does not exist.
	Market(ctx context.Context, conditionID string) (*domain.MarketData, error)
}

// EquitySource estimates a wallet's equity. Implementations never fail:
// lookup errors resolve to safe defaults.
type EquitySource interface {
	// Balance returns the cash (USDC) balance of address.
	Balance(ctx context.Context, address string) float64

	// PortfolioValue returns the marked value of address's open positions.
	PortfolioValue(ctx context.Context, address string) float64
}
