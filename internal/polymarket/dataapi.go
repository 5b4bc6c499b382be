package polymarket

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"polycopy/internal/domain"
)

// DataClient reads wallet activity from the Data API.
type DataClient struct {
	*Client
}

// NewDataClient creates a Data API client.
func NewDataClient(c *Client) *DataClient {
	return &DataClient{Client: c}
}

type dataTrade struct {
	ProxyWallet     string    `json:"proxyWallet"`
	Side            string    `json:"side"`
	Asset           string    `json:"asset"`
	ConditionID     string    `json:"conditionId"`
	Size            Number `json:"size"`
	Price           Number `json:"price"`
	Timestamp       int64     `json:"timestamp"`
	Title           string    `json:"title"`
	Outcome         string    `json:"outcome"`
	TransactionHash string    `json:"transactionHash"`
}

// Trades returns the most recent trades of user, newest first. Trades with
// an unknown side are skipped.
func (d *DataClient) Trades(ctx context.Context, user string, limit int) ([]domain.TradeEvent, error) {
	q := url.Values{"user": {user}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var raw []dataTrade
	if err := d.get(ctx, "/trades", q, nil, &raw); err != nil {
		return nil, err
	}

	trades := make([]domain.TradeEvent, 0, len(raw))
	for _, t := range raw {
		side, ok := domain.ParseSide(t.Side)
		if !ok {
			continue
		}
		wallet := t.ProxyWallet
		if wallet == "" {
			wallet = user
		}
		trades = append(trades, domain.TradeEvent{
			User:            strings.ToLower(wallet),
			Asset:           t.Asset,
			Side:            side,
			Size:            float64(t.Size),
			Price:           float64(t.Price),
			TransactionHash: t.TransactionHash,
			ConditionID:     t.ConditionID,
			Outcome:         t.Outcome,
			Title:           t.Title,
			Timestamp:       t.Timestamp,
		})
	}
	return trades, nil
}

// Position is an open position of a wallet.
type Position struct {
	Asset        string
	ConditionID  string
	Size         float64
	AvgPrice     float64
	CurPrice     float64
	CurrentValue float64
	Outcome      string
	Title        string
}

// Value returns the marked value of the position.
func (p Position) Value() float64 {
	if p.CurrentValue > 0 {
		return p.CurrentValue
	}
	return p.Size * p.CurPrice
}

type dataPosition struct {
	Asset        string    `json:"asset"`
	ConditionID  string    `json:"conditionId"`
	Size         Number `json:"size"`
	AvgPrice     Number `json:"avgPrice"`
	CurPrice     Number `json:"curPrice"`
	CurrentValue Number `json:"currentValue"`
	Outcome      string    `json:"outcome"`
	Title        string    `json:"title"`
}

// Positions returns the open positions of user.
func (d *DataClient) Positions(ctx context.Context, user string) ([]Position, error) {
	var raw []dataPosition
	if err := d.get(ctx, "/positions", url.Values{"user": {user}}, nil, &raw); err != nil {
		return nil, err
	}

	out := make([]Position, len(raw))
	for i, p := range raw {
		out[i] = Position{
			Asset:        p.Asset,
			ConditionID:  p.ConditionID,
			Size:         float64(p.Size),
			AvgPrice:     float64(p.AvgPrice),
			CurPrice:     float64(p.CurPrice),
			CurrentValue: float64(p.CurrentValue),
			Outcome:      p.Outcome,
			Title:        p.Title,
		}
	}
	return out, nil
}
