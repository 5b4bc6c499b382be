package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"polycopy/internal/domain"
)

// DefaultMarketCacheTTL bounds how long market metadata is reused.
const DefaultMarketCacheTTL = 5 * time.Minute

// GammaClient looks up market metadata from the Gamma API.
type GammaClient struct {
	*Client

	ttl   time.Duration
	now   func() time.Time
	mu    sync.Mutex
	cache map[string]cachedMarket
}

type cachedMarket struct {
	market  *domain.MarketData
	expires time.Time
}

// NewGammaClient creates a Gamma client with a market cache of ttl
// (0 disables caching).
func NewGammaClient(c *Client, ttl time.Duration) *GammaClient {
	return &GammaClient{
		Client: c,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedMarket),
	}
}

type gammaToken struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Price   Number `json:"price"`
}

type gammaMarket struct {
	ID            string       `json:"id"`
	Question      string       `json:"question"`
	ConditionID   string       `json:"conditionId"`
	Slug          string       `json:"slug"`
	EndDate       string       `json:"endDate"`
	Tokens        []gammaToken `json:"tokens"`
	ClobTokenIDs  string       `json:"clobTokenIds"`  // JSON-encoded []string
	Outcomes      string       `json:"outcomes"`      // JSON-encoded []string
	OutcomePrices string       `json:"outcomePrices"` // JSON-encoded []string
}

// Market returns metadata for conditionID. Returns domain.ErrMarketNotFound
// when Gamma has no such market.
func (g *GammaClient) Market(ctx context.Context, conditionID string) (*domain.MarketData, error) {
	if m, ok := g.cached(conditionID); ok {
		return m, nil
	}

	var markets []gammaMarket
	if err := g.get(ctx, "/markets", url.Values{"condition_id": {conditionID}}, nil, &markets); err != nil {
		return nil, err
	}
	for _, gm := range markets {
		if !strings.EqualFold(gm.ConditionID, conditionID) {
			continue
		}
		m := gm.toDomain()
		m.ConditionID = conditionID
		g.store(conditionID, m)
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrMarketNotFound, conditionID)
}

func (g *GammaClient) cached(conditionID string) (*domain.MarketData, bool) {
	if g.ttl <= 0 {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.cache[conditionID]
	if !ok || g.now().After(entry.expires) {
		delete(g.cache, conditionID)
		return nil, false
	}
	return entry.market, true
}

func (g *GammaClient) store(conditionID string, m *domain.MarketData) {
	if g.ttl <= 0 {
		return
	}
	g.mu.Lock()
	g.cache[conditionID] = cachedMarket{market: m, expires: g.now().Add(g.ttl)}
	g.mu.Unlock()
}

func (m *gammaMarket) toDomain() *domain.MarketData {
	out := &domain.MarketData{
		ID:          m.ID,
		Question:    m.Question,
		ConditionID: m.ConditionID,
		Slug:        m.Slug,
		EndDate:     m.EndDate,
	}

	if len(m.Tokens) > 0 {
		for _, t := range m.Tokens {
			out.Tokens = append(out.Tokens, domain.MarketToken{TokenID: t.TokenID, Outcome: t.Outcome, Price: float64(t.Price)})
		}
		return out
	}

	ids := decodeStringList(m.ClobTokenIDs)
	outcomes := decodeStringList(m.Outcomes)
	prices := decodeStringList(m.OutcomePrices)
	for i, id := range ids {
		tok := domain.MarketToken{TokenID: id}
		if i < len(outcomes) {
			tok.Outcome = outcomes[i]
		}
		if i < len(prices) {
			var p Number
			if err := p.UnmarshalJSON([]byte(prices[i])); err == nil {
				tok.Price = float64(p)
			}
		}
		out.Tokens = append(out.Tokens, tok)
	}
	return out
}

func decodeStringList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
