package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// balanceOfSelector is the 4-byte selector of balanceOf(address).
const balanceOfSelector = "0x70a08231"

// TokenBalance returns owner's balance of token scaled by decimals.
func (c *HTTPClient) TokenBalance(ctx context.Context, token, owner string, decimals int32) (decimal.Decimal, error) {
	data, err := encodeBalanceOf(owner)
	if err != nil {
		return decimal.Zero, err
	}

	out, err := c.Call(ctx, token, data)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balanceOf %s: %w", owner, err)
	}

	raw, err := decodeUint256(out)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(raw, -decimals), nil
}

// encodeBalanceOf builds balanceOf calldata with the address left-padded
// to 32 bytes.
func encodeBalanceOf(owner string) (string, error) {
	addr := strings.TrimPrefix(strings.ToLower(owner), "0x")
	if len(addr) != 40 {
		return "", fmt.Errorf("invalid address %q", owner)
	}
	if _, ok := new(big.Int).SetString(addr, 16); !ok {
		return "", fmt.Errorf("invalid address %q", owner)
	}
	return balanceOfSelector + strings.Repeat("0", 24) + addr, nil
}

func decodeUint256(hex string) (*big.Int, error) {
	s := strings.TrimPrefix(hex, "0x")
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid uint256 %q", hex)
	}
	return v, nil
}
