package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polycopy/internal/domain"
)

func newTestClient(url string) *Client {
	return NewClient(url, WithRetries(2, time.Millisecond), WithTimeout(2*time.Second))
}

func TestGammaClient_MarketTokensArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "0xcond", r.URL.Query().Get("condition_id"))
		w.Write([]byte(`[{
			"id": "123", "question": "Will it rain?", "conditionId": "0xcond", "slug": "rain",
			"endDate": "2026-12-31T00:00:00Z",
			"tokens": [{"token_id": "111", "outcome": "Yes", "price": 0.61}, {"token_id": "222", "outcome": "No", "price": "0.39"}]
		}]`))
	}))
	defer server.Close()

	g := NewGammaClient(newTestClient(server.URL), 0)
	m, err := g.Market(context.Background(), "0xcond")
	require.NoError(t, err)

	assert.Equal(t, "Will it rain?", m.Question)
	require.Len(t, m.Tokens, 2)
	assert.Equal(t, "222", m.Tokens[1].TokenID)
	assert.InDelta(t, 0.39, m.Tokens[1].Price, 1e-9)
	end, ok := m.EndTime()
	require.True(t, ok)
	assert.Equal(t, 2026, end.Year())
}

func TestGammaClient_MarketEncodedTokenIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{
			"id": "9", "question": "Q", "conditionId": "0xabc",
			"clobTokenIds": "[\"t-yes\", \"t-no\"]",
			"outcomes": "[\"Yes\", \"No\"]",
			"outcomePrices": "[\"0.2\", \"0.8\"]"
		}]`))
	}))
	defer server.Close()

	g := NewGammaClient(newTestClient(server.URL), 0)
	m, err := g.Market(context.Background(), "0xabc")
	require.NoError(t, err)

	require.Len(t, m.Tokens, 2)
	assert.Equal(t, domain.MarketToken{TokenID: "t-no", Outcome: "No", Price: 0.8}, m.Tokens[1])
	assert.Equal(t, 1, m.OutcomeIndex("t-no"))
}

func TestGammaClient_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	g := NewGammaClient(newTestClient(server.URL), 0)
	_, err := g.Market(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestGammaClient_PicksRequestedCondition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"conditionId": "0xother", "question": "Other", "clobTokenIds": "[\"o-yes\"]"},
			{"conditionId": "0xABC", "question": "Wanted", "clobTokenIds": "[\"w-yes\"]"}
		]`))
	}))
	defer server.Close()

	g := NewGammaClient(newTestClient(server.URL), 0)
	m, err := g.Market(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", m.ConditionID)
	assert.Equal(t, "Wanted", m.Question)
	require.Len(t, m.Tokens, 1)
	assert.Equal(t, "w-yes", m.Tokens[0].TokenID)

	_, err = g.Market(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domain.ErrMarketNotFound)
}

func TestGammaClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"conditionId": "0xcond", "question": "Q"}]`))
	}))
	defer server.Close()

	g := NewGammaClient(newTestClient(server.URL), 0)
	_, err := g.Market(context.Background(), "0xcond")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGammaClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	g := NewGammaClient(newTestClient(server.URL), 0)
	_, err := g.Market(context.Background(), "0xcond")

	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGammaClient_Cache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"conditionId": "0xcond", "question": "Q"}]`))
	}))
	defer server.Close()

	now := time.Unix(1_700_000_000, 0)
	g := NewGammaClient(newTestClient(server.URL), time.Minute)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := g.Market(ctx, "0xcond")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := g.Market(ctx, "0xcond")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDataClient_Trades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/trades", r.URL.Path)
		assert.Equal(t, "0xwhale", r.URL.Query().Get("user"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			{"proxyWallet": "0xWHALE", "side": "BUY", "asset": "111", "conditionId": "0xc1", "size": 100, "price": 0.5,
			 "timestamp": 1700000000, "title": "T", "outcome": "Yes", "transactionHash": "0xh1"},
			{"proxyWallet": "0xWHALE", "side": "sell", "asset": "222", "conditionId": "0xc2", "size": "12.5", "price": "0.25",
			 "timestamp": 1700000001, "transactionHash": "0xh2"},
			{"proxyWallet": "0xWHALE", "side": "MERGE", "asset": "333", "conditionId": "0xc3", "size": 1, "price": 1,
			 "transactionHash": "0xh3"}
		]`))
	}))
	defer server.Close()

	d := NewDataClient(newTestClient(server.URL))
	trades, err := d.Trades(context.Background(), "0xwhale", 10)
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.Equal(t, "0xwhale", trades[0].User)
	assert.Equal(t, domain.SideBuy, trades[0].Side)
	assert.InDelta(t, 50, trades[0].NotionalUSD(), 1e-9)
	assert.Equal(t, domain.SideSell, trades[1].Side)
	assert.InDelta(t, 12.5, trades[1].Size, 1e-9)
	assert.Equal(t, "0xh2", trades[1].TransactionHash)
}

func TestDataClient_Positions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/positions", r.URL.Path)
		w.Write([]byte(`[
			{"asset": "1", "conditionId": "c1", "size": 100, "curPrice": 0.4},
			{"asset": "2", "conditionId": "c2", "size": 10, "curPrice": 0.9, "currentValue": 9.5}
		]`))
	}))
	defer server.Close()

	d := NewDataClient(newTestClient(server.URL))
	positions, err := d.Positions(context.Background(), "0xwhale")
	require.NoError(t, err)

	require.Len(t, positions, 2)
	assert.InDelta(t, 40, positions[0].Value(), 1e-9)
	assert.InDelta(t, 9.5, positions[1].Value(), 1e-9)
}

func TestNumber(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1.5, "b": "0.01", "c": null}`), &v))
	assert.Equal(t, Number(1.5), v.A)
	assert.Equal(t, Number(0.01), v.B)
	assert.Zero(t, v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a": "abc"}`), &v))
}
