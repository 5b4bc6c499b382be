package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const (
	testUSDC  = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"
	testOwner = "0x00000000000000000000000000000000DeaDBeef"
)

func TestHTTPClient_TokenBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "eth_call" {
			t.Errorf("expected method eth_call, got %s", req.Method)
		}

		msg, _ := req.Params[0].(map[string]any)
		if msg["to"] != testUSDC {
			t.Errorf("unexpected to %v", msg["to"])
		}
		data, _ := msg["data"].(string)
		if !strings.HasPrefix(data, balanceOfSelector) || !strings.HasSuffix(data, "00000000000000000000000000000000deadbeef") {
			t.Errorf("unexpected calldata %s", data)
		}
		if len(data) != 2+8+64 {
			t.Errorf("calldata length %d, want 74", len(data))
		}

		// 1234.56789 USDC at 6 decimals
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "0x00000000000000000000000000000000000000000000000000000000499602d2",
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	bal, err := client.TokenBalance(context.Background(), testUSDC, testOwner, 6)
	if err != nil {
		t.Fatalf("TokenBalance: %v", err)
	}
	if got := bal.String(); got != "1234.56789" {
		t.Errorf("balance = %s, want 1234.56789", got)
	}
}

func TestHTTPClient_RPCErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]any{"code": -32000, "message": "execution reverted"},
		})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
	_, err := client.Call(context.Background(), testUSDC, "0x")
	if err == nil || !strings.Contains(err.Error(), "execution reverted") {
		t.Fatalf("expected rpc error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestHTTPClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0x01"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithRetryDelay(time.Millisecond))
	out, err := client.Call(context.Background(), testUSDC, "0x")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "0x01" {
		t.Errorf("result = %s, want 0x01", out)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestEncodeBalanceOf_InvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "0x1234", "0xzz000000000000000000000000000000deadbeef"} {
		if _, err := encodeBalanceOf(addr); err == nil {
			t.Errorf("expected error for %q", addr)
		}
	}
}
