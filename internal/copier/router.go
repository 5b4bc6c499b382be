package copier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"polycopy/internal/domain"
)

// ErrDuplicateTrader is returned when two processors track the same wallet.
var ErrDuplicateTrader = errors.New("duplicate trader")

// Router dispatches trades to the processor of the wallet that made them.
type Router struct {
	processors map[string]*Processor
	logger     *slog.Logger
}

// NewRouter creates a Router over processors, keyed by lowercase address.
func NewRouter(logger *slog.Logger, processors ...*Processor) (*Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		processors: make(map[string]*Processor, len(processors)),
		logger:     logger,
	}
	for _, p := range processors {
		addr := p.Trader()
		if _, ok := r.processors[addr]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTrader, addr)
		}
		r.processors[addr] = p
	}
	return r, nil
}

// Targets returns the tracked wallet addresses, sorted.
func (r *Router) Targets() []string {
	out := make([]string, 0, len(r.processors))
	for addr := range r.processors {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Route hands trade to its trader's processor. Trades of untracked wallets
// are dropped.
func (r *Router) Route(ctx context.Context, trade domain.TradeEvent) {
	p, ok := r.processors[normalizeAddress(trade.User)]
	if !ok {
		r.logger.Debug("trade from untracked wallet", "user", trade.User, "tx", trade.TransactionHash)
		return
	}
	p.HandleTrade(ctx, trade)
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
