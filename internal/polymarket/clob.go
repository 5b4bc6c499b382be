package polymarket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"polycopy/internal/domain"
)

// CLOB auth header names
const (
	headerAddress    = "POLY_ADDRESS"
	headerSignature  = "POLY_SIGNATURE"
	headerTimestamp  = "POLY_TIMESTAMP"
	headerNonce      = "POLY_NONCE"
	headerAPIKey     = "POLY_API_KEY"
	headerPassphrase = "POLY_PASSPHRASE"
)

// OrderTypeGTC is a good-till-cancelled limit order.
const OrderTypeGTC = "GTC"

// CLOBClient talks to the order book API. It implements executor.Broker
// and executor.CredentialSource.
type CLOBClient struct {
	*Client
	signer Signer
	now    func() time.Time
}

// NewCLOBClient creates a CLOB client signing through signer.
func NewCLOBClient(c *Client, signer Signer) *CLOBClient {
	return &CLOBClient{Client: c, signer: signer, now: time.Now}
}

type bookResponse struct {
	Market   string    `json:"market"`
	AssetID  string    `json:"asset_id"`
	TickSize Number `json:"tick_size"`
	NegRisk  bool      `json:"neg_risk"`
}

// OrderBook returns the tick size and neg-risk flag of tokenID's book.
func (c *CLOBClient) OrderBook(ctx context.Context, tokenID string) (*domain.OrderBookParams, error) {
	var resp bookResponse
	if err := c.get(ctx, "/book", url.Values{"token_id": {tokenID}}, nil, &resp); err != nil {
		return nil, err
	}
	return &domain.OrderBookParams{TickSize: float64(resp.TickSize), NegRisk: resp.NegRisk}, nil
}

// DeriveAPIKey returns the existing API credentials of the signing wallet.
func (c *CLOBClient) DeriveAPIKey(ctx context.Context) (*domain.APICredentials, error) {
	headers, err := c.l1Headers(ctx, 0)
	if err != nil {
		return nil, err
	}
	var creds domain.APICredentials
	if err := c.get(ctx, "/auth/derive-api-key", nil, headers, &creds); err != nil {
		return nil, fmt.Errorf("derive api key: %w", err)
	}
	return &creds, nil
}

// CreateAPIKey creates new API credentials for the signing wallet.
func (c *CLOBClient) CreateAPIKey(ctx context.Context) (*domain.APICredentials, error) {
	headers, err := c.l1Headers(ctx, 0)
	if err != nil {
		return nil, err
	}
	var creds domain.APICredentials
	if err := c.post(ctx, "/auth/api-key", nil, headers, &creds); err != nil {
		return nil, fmt.Errorf("create api key: %w", err)
	}
	return &creds, nil
}

type postOrderRequest struct {
	Order     json.RawMessage `json:"order"`
	Owner     string          `json:"owner"`
	OrderType string          `json:"orderType"`
}

type postOrderResponse struct {
	Success  bool   `json:"success"`
	ErrorMsg string `json:"errorMsg"`
	OrderID  string `json:"orderID"`
	Status   string `json:"status"`
}

// SubmitOrder signs req and posts it as a GTC order. It is never retried.
// Failures wrap domain.ErrOrderRejected.
func (c *CLOBClient) SubmitOrder(ctx context.Context, creds *domain.APICredentials, req domain.OrderRequest) (*domain.OrderReceipt, error) {
	if !creds.Valid() {
		return nil, domain.ErrCredentialsUnavailable
	}

	signed, err := c.signer.SignOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
	}

	body, err := json.Marshal(postOrderRequest{Order: signed, Owner: creds.APIKey, OrderType: OrderTypeGTC})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	headers, err := c.l2Headers(creds, http.MethodPost, "/order", body)
	if err != nil {
		return nil, err
	}

	var resp postOrderResponse
	if err := c.post(ctx, "/order", body, headers, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrOrderRejected, apiErr.Message, string(apiErr.Body))
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderRejected, resp.ErrorMsg)
	}

	return &domain.OrderReceipt{OrderID: resp.OrderID, Status: resp.Status}, nil
}

func (c *CLOBClient) l1Headers(ctx context.Context, nonce int64) (http.Header, error) {
	ts := c.now().Unix()
	sig, err := c.signer.SignAuth(ctx, ts, nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCredentialsUnavailable, err)
	}

	h := http.Header{}
	h.Set(headerAddress, c.signer.Address())
	h.Set(headerSignature, sig)
	h.Set(headerTimestamp, strconv.FormatInt(ts, 10))
	h.Set(headerNonce, strconv.FormatInt(nonce, 10))
	return h, nil
}

func (c *CLOBClient) l2Headers(creds *domain.APICredentials, method, path string, body []byte) (http.Header, error) {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	sig, err := l2Signature(creds.Secret, ts, method, path, body)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	h.Set(headerAddress, c.signer.Address())
	h.Set(headerSignature, sig)
	h.Set(headerTimestamp, ts)
	h.Set(headerAPIKey, creds.APIKey)
	h.Set(headerPassphrase, creds.Passphrase)
	return h, nil
}

// l2Signature is base64url(HMAC-SHA256(secret, timestamp+method+path+body)).
func l2Signature(secret, timestamp, method, path string, body []byte) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func decodeSecret(secret string) ([]byte, error) {
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		key, err := enc.DecodeString(secret)
		if err == nil {
			return key, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
