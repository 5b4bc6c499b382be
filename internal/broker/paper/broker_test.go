package paper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycopy/internal/domain"
)

type staticBooks struct {
	params *domain.OrderBookParams
	err    error
}

func (s staticBooks) OrderBook(context.Context, string) (*domain.OrderBookParams, error) {
	return s.params, s.err
}

func TestBroker_SubmitOrder(t *testing.T) {
	b := New(nil)
	ctx := context.Background()

	req := domain.OrderRequest{TokenID: "tok", Side: domain.SideBuy, Price: 0.5, Shares: 40, TickSize: 0.01}
	receipt, err := b.SubmitOrder(ctx, credentials(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.OrderID, "paper-"))

	fills := b.Fills()
	require.Len(t, fills, 1)
	assert.Equal(t, receipt.OrderID, fills[0].OrderID)
	assert.Equal(t, req, fills[0].Request)

	_, err = b.SubmitOrder(ctx, credentials(), domain.OrderRequest{TokenID: "tok"})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	assert.Len(t, b.Fills(), 1)
}

func TestBroker_OrderBook(t *testing.T) {
	ctx := context.Background()

	_, err := New(nil).OrderBook(ctx, "tok")
	assert.Error(t, err)

	book, err := New(staticBooks{params: &domain.OrderBookParams{TickSize: 0.001, NegRisk: true}}).OrderBook(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 0.001, book.TickSize)

	_, err = New(staticBooks{err: errors.New("down")}).OrderBook(ctx, "tok")
	assert.Error(t, err)
}

func TestBroker_Credentials(t *testing.T) {
	b := New(nil)
	creds, err := b.DeriveAPIKey(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Valid())

	creds, err = b.CreateAPIKey(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Valid())
}
