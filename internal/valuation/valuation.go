// Package valuation estimates wallet equity from on-chain balances and
// open positions.
package valuation

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"polycopy/internal/chain"
	"polycopy/internal/polymarket"
)

// Fallback values applied when a portfolio cannot be valued.
const (
	DefaultFallbackPortfolioValue = 1000.0
	DefaultMinPortfolioValue      = 100.0
)

// PositionSource lists a wallet's open positions.
type PositionSource interface {
	Positions(ctx context.Context, user string) ([]polymarket.Position, error)
}

// Options configures a Valuator.
type Options struct {
	USDCContract string
	USDCDecimals int32

	// FallbackPortfolioValue replaces portfolio values at or below
	// MinPortfolioValue, and lookup failures.
	FallbackPortfolioValue float64
	MinPortfolioValue      float64

	Logger *slog.Logger
}

// Valuator implements strategy.EquitySource and executor.BalanceSource.
// It never returns errors: a failed balance read is 0 and a failed
// portfolio read is the fallback value.
type Valuator struct {
	rpc       chain.RPCClient
	positions PositionSource
	opts      Options
	logger    *slog.Logger
}

// New creates a Valuator.
func New(rpc chain.RPCClient, positions PositionSource, opts Options) *Valuator {
	if opts.USDCDecimals == 0 {
		opts.USDCDecimals = 6
	}
	if opts.FallbackPortfolioValue == 0 {
		opts.FallbackPortfolioValue = DefaultFallbackPortfolioValue
	}
	if opts.MinPortfolioValue == 0 {
		opts.MinPortfolioValue = DefaultMinPortfolioValue
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Valuator{rpc: rpc, positions: positions, opts: opts, logger: logger}
}

// Balance returns the USDC balance of address, or 0 when it cannot be read.
func (v *Valuator) Balance(ctx context.Context, address string) float64 {
	if v.rpc == nil || address == "" {
		return 0
	}
	bal, err := v.rpc.TokenBalance(ctx, v.opts.USDCContract, address, v.opts.USDCDecimals)
	if err != nil {
		v.logger.Warn("usdc balance lookup failed", "address", address, "err", err)
		return 0
	}
	f, _ := bal.Float64()
	return f
}

// PortfolioValue returns the marked value of address's open positions.
func (v *Valuator) PortfolioValue(ctx context.Context, address string) float64 {
	if v.positions == nil {
		return v.opts.FallbackPortfolioValue
	}
	positions, err := v.positions.Positions(ctx, address)
	if err != nil {
		v.logger.Warn("portfolio lookup failed, using fallback",
			"address", address, "fallback", v.opts.FallbackPortfolioValue, "err", err)
		return v.opts.FallbackPortfolioValue
	}

	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.Value()))
	}
	value, _ := total.Float64()
	if value <= v.opts.MinPortfolioValue {
		v.logger.Debug("portfolio below minimum, using fallback",
			"address", address, "value", value, "fallback", v.opts.FallbackPortfolioValue)
		return v.opts.FallbackPortfolioValue
	}
	return value
}

// Static is a fixed balance, used by paper trading.
type Static float64

// Balance returns the fixed balance regardless of address.
func (s Static) Balance(context.Context, string) float64 { return float64(s) }
