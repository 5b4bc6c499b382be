package source

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"polycopy/internal/domain"
)

// TradeFetcher lists a wallet's most recent trades, newest first.
type TradeFetcher interface {
	Trades(ctx context.Context, user string, limit int) ([]domain.TradeEvent, error)
}

// PollerConfig tunes the polling loop.
type PollerConfig struct {
	Interval     time.Duration
	TradeLimit   int
	MaxBackoff   time.Duration
	SeenCapacity int
	Logger       *slog.Logger
}

// DefaultPollerConfig returns the default polling configuration.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:     2 * time.Second,
		TradeLimit:   10,
		MaxBackoff:   time.Minute,
		SeenCapacity: 1000,
	}
}

// Poller polls the Data API for each target wallet. The first successful
// fetch of a target only records existing trades as seen; later fetches
// emit trades that were not seen before, oldest first.
type Poller struct {
	fetcher TradeFetcher
	targets []string
	handler Handler
	config  PollerConfig
	logger  *slog.Logger

	seen      *seenSet
	baselined map[string]bool
	backoff   *backoff.ExponentialBackOff
}

// NewPoller creates a poller for targets.
func NewPoller(fetcher TradeFetcher, targets []string, handler Handler, config PollerConfig) *Poller {
	def := DefaultPollerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.TradeLimit <= 0 {
		config.TradeLimit = def.TradeLimit
	}
	if config.MaxBackoff < config.Interval {
		config.MaxBackoff = max(def.MaxBackoff, config.Interval)
	}
	if config.SeenCapacity <= 0 {
		config.SeenCapacity = def.SeenCapacity
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lowered := make([]string, len(targets))
	for i, t := range targets {
		lowered[i] = strings.ToLower(t)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = config.Interval
	bo.MaxInterval = config.MaxBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	return &Poller{
		fetcher:   fetcher,
		targets:   lowered,
		handler:   handler,
		config:    config,
		logger:    logger,
		seen:      newSeenSet(config.SeenCapacity * max(1, len(lowered))),
		baselined: make(map[string]bool, len(lowered)),
		backoff:   bo,
	}
}

// Run polls until ctx is cancelled. Consecutive failed cycles back off
// exponentially with jitter up to MaxBackoff.
func (p *Poller) Run(ctx context.Context) error {
	if len(p.targets) == 0 {
		p.logger.Warn("no targets configured, poller not started")
		return nil
	}
	p.logger.Info("poller started", "targets", len(p.targets), "interval", p.config.Interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return nil
		case <-timer.C:
		}

		wait := p.config.Interval
		if err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			wait = p.backoff.NextBackOff()
			p.logger.Warn("poll cycle failed", "err", err, "retry_in", wait)
		} else {
			p.backoff.Reset()
		}
		timer.Reset(wait)
	}
}

// PollOnce fetches every target once. It returns the joined errors of the
// targets that failed; the others are still processed.
func (p *Poller) PollOnce(ctx context.Context) error {
	var errs []error
	for _, target := range p.targets {
		if err := p.pollTarget(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Poller) pollTarget(ctx context.Context, target string) error {
	trades, err := p.fetcher.Trades(ctx, target, p.config.TradeLimit)
	if err != nil {
		return err
	}

	if !p.baselined[target] {
		for _, t := range trades {
			p.seen.add(tradeKey(t))
		}
		p.baselined[target] = true
		p.logger.Info("baseline recorded", "target", target, "trades", len(trades))
		return nil
	}

	for i := len(trades) - 1; i >= 0; i-- {
		t := trades[i]
		key := tradeKey(t)
		if p.seen.contains(key) {
			continue
		}
		p.seen.add(key)
		if t.User == "" {
			t.User = target
		}

		p.logger.Info("new trade detected",
			"target", target,
			"side", t.Side,
			"size", t.Size,
			"price", t.Price,
			"outcome", t.Outcome,
			"title", t.Title,
		)
		p.handler(ctx, t)
	}
	return nil
}
