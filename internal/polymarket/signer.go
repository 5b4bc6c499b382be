package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"polycopy/internal/domain"
)

// Signer produces the wallet signatures the CLOB requires. Private keys
// never enter this process.
type Signer interface {
	// Address returns the signing wallet address.
	Address() string

	// SignAuth signs the CLOB auth message for timestamp and nonce.
	SignAuth(ctx context.Context, timestamp, nonce int64) (string, error)

	// SignOrder builds and signs an order payload for req.
	SignOrder(ctx context.Context, req domain.OrderRequest) (json.RawMessage, error)
}

// SidecarSigner delegates signing to a local HTTP sidecar that holds the
// wallet key.
type SidecarSigner struct {
	*Client
	address string
}

// NewSidecarSigner creates a signer backed by the sidecar at c's base URL.
func NewSidecarSigner(c *Client, address string) *SidecarSigner {
	return &SidecarSigner{Client: c, address: address}
}

// Address returns the signing wallet address.
func (s *SidecarSigner) Address() string { return s.address }

type signAuthRequest struct {
	Address   string `json:"address"`
	Timestamp string `json:"timestamp"`
	Nonce     int64  `json:"nonce"`
}

type signAuthResponse struct {
	Signature string `json:"signature"`
}

// SignAuth asks the sidecar for an auth signature.
func (s *SidecarSigner) SignAuth(ctx context.Context, timestamp, nonce int64) (string, error) {
	body, err := json.Marshal(signAuthRequest{
		Address:   s.address,
		Timestamp: strconv.FormatInt(timestamp, 10),
		Nonce:     nonce,
	})
	if err != nil {
		return "", err
	}

	var resp signAuthResponse
	if err := s.post(ctx, "/v1/sign/auth", body, nil, &resp); err != nil {
		return "", fmt.Errorf("sign auth: %w", err)
	}
	if resp.Signature == "" {
		return "", fmt.Errorf("sign auth: empty signature")
	}
	return resp.Signature, nil
}

type signOrderRequest struct {
	TokenID  string  `json:"tokenId"`
	Side     string  `json:"side"`
	Price    float64 `json:"price"`
	Size     float64 `json:"size"`
	TickSize string  `json:"tickSize"`
	NegRisk  bool    `json:"negRisk"`
}

type signOrderResponse struct {
	Order json.RawMessage `json:"order"`
}

// SignOrder asks the sidecar to build and sign an order.
func (s *SidecarSigner) SignOrder(ctx context.Context, req domain.OrderRequest) (json.RawMessage, error) {
	body, err := json.Marshal(signOrderRequest{
		TokenID:  req.TokenID,
		Side:     string(req.Side),
		Price:    req.Price,
		Size:     req.Shares,
		TickSize: strconv.FormatFloat(req.TickSize, 'f', -1, 64),
		NegRisk:  req.NegRisk,
	})
	if err != nil {
		return nil, err
	}

	var resp signOrderResponse
	if err := s.post(ctx, "/v1/sign/order", body, nil, &resp); err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}
	if len(resp.Order) == 0 {
		return nil, fmt.Errorf("sign order: empty order")
	}
	return resp.Order, nil
}

// Health checks that the sidecar is reachable.
func (s *SidecarSigner) Health(ctx context.Context) error {
	_, err := s.doRequest(ctx, http.MethodGet, "/v1/health", nil, nil, nil)
	return err
}
