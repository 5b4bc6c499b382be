// Package executor turns executable decisions into risk-capped orders and
// tracks the capital committed to them.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"polycopy/internal/domain"
)

// Execution errors
var (
	ErrTokenNotFound  = errors.New("outcome token not found")
	ErrBelowMinShares = errors.New("order below minimum shares")
	ErrInvalidPrice   = errors.New("invalid price")
)

// Executor defaults
const (
	DefaultGlobalAllocation = 1.0
	DefaultMinShares        = 1.0
	DefaultTickSize         = 0.01
	DefaultOrderTimeout     = 15 * time.Second
	DefaultLookupTimeout    = 10 * time.Second
)

// Broker places orders on the order book.
type Broker interface {
	// OrderBook returns order-construction parameters for tokenID.
	OrderBook(ctx context.Context, tokenID string) (*domain.OrderBookParams, error)

	// SubmitOrder places a signed limit order.
	SubmitOrder(ctx context.Context, creds *domain.APICredentials, req domain.OrderRequest) (*domain.OrderReceipt, error)
}

// CredentialSource obtains trading credentials from the signer.
type CredentialSource interface {
	DeriveAPIKey(ctx context.Context) (*domain.APICredentials, error)
	CreateAPIKey(ctx context.Context) (*domain.APICredentials, error)
}

// BalanceSource reports a wallet's spendable cash balance.
type BalanceSource interface {
	Balance(ctx context.Context, address string) float64
}

// Options configures an Executor. Zero values take defaults.
type Options struct {
	WalletAddress    string
	GlobalAllocation float64
	MinShares        float64
	DefaultTickSize  float64
	OrderTimeout     time.Duration
	LookupTimeout    time.Duration
	Exposure         *ExposureState // shared across executors if set
	Logger           *slog.Logger
	NewOrderID       func() string
}

func (o *Options) applyDefaults() {
	if o.GlobalAllocation <= 0 || o.GlobalAllocation > 1 {
		o.GlobalAllocation = DefaultGlobalAllocation
	}
	if o.MinShares <= 0 {
		o.MinShares = DefaultMinShares
	}
	if o.DefaultTickSize <= 0 {
		o.DefaultTickSize = DefaultTickSize
	}
	if o.OrderTimeout <= 0 {
		o.OrderTimeout = DefaultOrderTimeout
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = DefaultLookupTimeout
	}
	if o.Exposure == nil {
		o.Exposure = NewExposureState()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.NewOrderID == nil {
		o.NewOrderID = uuid.NewString
	}
}

// Result describes an execution attempt that got past the risk caps.
type Result struct {
	Order        domain.OrderRequest
	Receipt      *domain.OrderReceipt // nil unless placed
	RequestedUSD float64
	SizeUSD      float64
	Clamped      bool
	SpendableUSD float64
}

// Executor converts decisions into orders. Safe for concurrent use.
type Executor struct {
	broker  Broker
	creds   CredentialSource
	balance BalanceSource
	opts    Options
	logger  *slog.Logger

	mu          sync.RWMutex
	credentials *domain.APICredentials
}

// New creates an Executor. Trading stays disabled until Init succeeds.
func New(broker Broker, creds CredentialSource, balance BalanceSource, opts Options) *Executor {
	opts.applyDefaults()
	return &Executor{
		broker:  broker,
		creds:   creds,
		balance: balance,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// Exposure returns the exposure tracker.
func (x *Executor) Exposure() *ExposureState { return x.opts.Exposure }

// Init derives existing trading credentials, falling back to creating new
// ones. When both fail trading stays disabled and every Execute returns
// domain.ErrCredentialsUnavailable; the returned error is for reporting
// only and is not fatal to the process.
func (x *Executor) Init(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, x.opts.LookupTimeout)
	defer cancel()

	creds, deriveErr := x.creds.DeriveAPIKey(ctx)
	if deriveErr == nil && creds.Valid() {
		x.setCredentials(creds)
		x.logger.Info("derived existing trading credentials")
		return nil
	}
	x.logger.Warn("derive trading credentials failed, creating new ones", "err", deriveErr)

	creds, createErr := x.creds.CreateAPIKey(ctx)
	if createErr == nil && creds.Valid() {
		x.setCredentials(creds)
		x.logger.Info("created new trading credentials")
		return nil
	}

	err := fmt.Errorf("%w: derive: %v, create: %v", domain.ErrCredentialsUnavailable, deriveErr, createErr)
	x.logger.Error("TRADING DISABLED: no trading credentials", "err", err)
	return err
}

// TradingEnabled reports whether credentials are available.
func (x *Executor) TradingEnabled() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.credentials != nil
}

func (x *Executor) setCredentials(c *domain.APICredentials) {
	x.mu.Lock()
	x.credentials = c
	x.mu.Unlock()
}

func (x *Executor) currentCredentials() *domain.APICredentials {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.credentials
}

// SpendableCapital returns wallet balance * global allocation.
func (x *Executor) SpendableCapital(ctx context.Context) float64 {
	ctx, cancel := context.WithTimeout(ctx, x.opts.LookupTimeout)
	defer cancel()
	return x.balance.Balance(ctx, x.opts.WalletAddress) * x.opts.GlobalAllocation
}

// Execute places a copy order for an executable decision. It returns
// (nil, nil) when d is not executable. Committed exposure changes only
// after the broker confirms the order; no step is retried.
//
// A non-nil Result with an error means the order was built but not placed.
func (x *Executor) Execute(ctx context.Context, d domain.Decision, cfg domain.StrategyConfig, side domain.Side, outcomeIndex int, price float64) (*Result, error) {
	if !d.ShouldExecute || d.Market == nil || d.Size.IsZero() {
		return nil, nil
	}

	creds := x.currentCredentials()
	if creds == nil {
		return nil, domain.ErrCredentialsUnavailable
	}
	if price <= 0 || price >= 1 {
		return nil, fmt.Errorf("%w: %.4f", ErrInvalidPrice, price)
	}

	conditionID := d.Market.ConditionID
	log := x.logger.With("trader", cfg.Label(), "condition_id", conditionID)

	spendable := x.SpendableCapital(ctx)
	requested := d.Size.Resolve(spendable)

	res, err := x.opts.Exposure.Reserve(conditionID, requested, spendable, cfg.Risk)
	if err != nil {
		log.Warn("risk cap blocked order", "requested_usd", requested, "spendable_usd", spendable, "err", err)
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			x.opts.Exposure.Release(res)
		}
	}()

	result := &Result{
		RequestedUSD: requested,
		SizeUSD:      res.SizeUSD,
		Clamped:      res.Clamped,
		SpendableUSD: spendable,
	}
	if res.Clamped {
		log.Info("clamped order to single-trade cap", "requested_usd", requested, "size_usd", res.SizeUSD)
	}

	token, ok := d.Market.Token(outcomeIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d in %s", ErrTokenNotFound, outcomeIndex, conditionID)
	}

	shares := sharesFor(res.SizeUSD, price)
	if shares < x.opts.MinShares {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrBelowMinShares, shares, x.opts.MinShares)
	}

	book := x.orderBook(ctx, token.TokenID, log)

	result.Order = domain.OrderRequest{
		ClientOrderID: x.opts.NewOrderID(),
		TokenID:       token.TokenID,
		Side:          side,
		Price:         roundToTick(price, book.TickSize),
		Shares:        shares,
		TickSize:      book.TickSize,
		NegRisk:       book.NegRisk,
	}

	submitCtx, cancel := context.WithTimeout(ctx, x.opts.OrderTimeout)
	defer cancel()

	receipt, err := x.broker.SubmitOrder(submitCtx, creds, result.Order)
	if err != nil {
		log.Error("order submission failed", "token_id", token.TokenID, "size_usd", res.SizeUSD, "err", err)
		if !errors.Is(err, domain.ErrOrderRejected) {
			err = fmt.Errorf("%w: %v", domain.ErrOrderRejected, err)
		}
		return result, err
	}

	if err := x.opts.Exposure.Commit(res); err != nil {
		return result, err
	}
	committed = true
	result.Receipt = receipt

	log.Info("copied order placed",
		"order_id", receipt.OrderID,
		"token_id", token.TokenID,
		"side", side,
		"price", result.Order.Price,
		"shares", shares,
		"size_usd", res.SizeUSD,
	)
	return result, nil
}

func (x *Executor) orderBook(ctx context.Context, tokenID string, log *slog.Logger) domain.OrderBookParams {
	ctx, cancel := context.WithTimeout(ctx, x.opts.LookupTimeout)
	defer cancel()

	params := domain.OrderBookParams{TickSize: x.opts.DefaultTickSize}
	book, err := x.broker.OrderBook(ctx, tokenID)
	if err != nil || book == nil {
		log.Warn("order book lookup failed, using defaults", "token_id", tokenID, "tick_size", params.TickSize, "err", err)
		return params
	}
	if book.TickSize > 0 && book.TickSize < 1 {
		params.TickSize = book.TickSize
	}
	params.NegRisk = book.NegRisk
	return params
}
