package domain

import (
	"strings"
	"time"
)

// MarketToken is a tradable outcome token of a market.
type MarketToken struct {
	TokenID string
	Outcome string
	Price   float64
}

// MarketData is market metadata as returned by the market provider.
type MarketData struct {
	ID          string
	Question    string
	ConditionID string
	Slug        string
	EndDate     string // RFC3339, may be empty
	Tokens      []MarketToken
}

// OutcomeIndex returns the index of the token matching asset, or 0 when
// no token matches.
func (m *MarketData) OutcomeIndex(asset string) int {
	for i, t := range m.Tokens {
		if t.TokenID == asset {
			return i
		}
	}
	return 0
}

// Token returns the token at outcome index i.
func (m *MarketData) Token(i int) (MarketToken, bool) {
	if i < 0 || i >= len(m.Tokens) || m.Tokens[i].TokenID == "" {
		return MarketToken{}, false
	}
	return m.Tokens[i], true
}

// EndTime parses EndDate. Returns false when missing or unparseable.
func (m *MarketData) EndTime() (time.Time, bool) {
	s := strings.TrimSpace(m.EndDate)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OrderBookParams are the order-construction parameters of a token's book.
type OrderBookParams struct {
	TickSize float64
	NegRisk  bool // combined-outcome (neg-risk) market
}
