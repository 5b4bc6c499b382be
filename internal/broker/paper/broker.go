// Package paper provides an in-memory broker for dry runs. Orders are
// recorded and acknowledged but never reach the exchange.
package paper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"polycopy/internal/domain"
)

// BookSource supplies real order-book parameters. Optional.
type BookSource interface {
	OrderBook(ctx context.Context, tokenID string) (*domain.OrderBookParams, error)
}

// Fill is an order accepted by the paper broker.
type Fill struct {
	OrderID  string
	Request  domain.OrderRequest
	FilledAt time.Time
}

// Broker implements executor.Broker and executor.CredentialSource.
type Broker struct {
	books BookSource

	mu    sync.Mutex
	fills []Fill
	now   func() time.Time
}

// New creates a paper broker. books may be nil, in which case the
// executor's default book parameters apply.
func New(books BookSource) *Broker {
	return &Broker{books: books, now: time.Now}
}

// OrderBook delegates to the book source when one is configured.
func (b *Broker) OrderBook(ctx context.Context, tokenID string) (*domain.OrderBookParams, error) {
	if b.books == nil {
		return nil, errors.New("paper broker has no order book source")
	}
	return b.books.OrderBook(ctx, tokenID)
}

// SubmitOrder records req and acknowledges it.
func (b *Broker) SubmitOrder(ctx context.Context, creds *domain.APICredentials, req domain.OrderRequest) (*domain.OrderReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Shares <= 0 || req.Price <= 0 {
		return nil, domain.ErrOrderRejected
	}

	fill := Fill{
		OrderID:  "paper-" + uuid.New().String(),
		Request:  req,
		FilledAt: b.now().UTC(),
	}
	b.mu.Lock()
	b.fills = append(b.fills, fill)
	b.mu.Unlock()

	return &domain.OrderReceipt{OrderID: fill.OrderID, Status: "matched"}, nil
}

// Fills returns a copy of the accepted orders.
func (b *Broker) Fills() []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Fill, len(b.fills))
	copy(out, b.fills)
	return out
}

// DeriveAPIKey returns placeholder credentials.
func (b *Broker) DeriveAPIKey(context.Context) (*domain.APICredentials, error) {
	return credentials(), nil
}

// CreateAPIKey returns placeholder credentials.
func (b *Broker) CreateAPIKey(context.Context) (*domain.APICredentials, error) {
	return credentials(), nil
}

func credentials() *domain.APICredentials {
	return &domain.APICredentials{APIKey: "paper", Secret: "paper", Passphrase: "paper"}
}
