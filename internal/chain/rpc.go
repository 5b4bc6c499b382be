// Package chain reads on-chain state from a Polygon JSON-RPC endpoint.
package chain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RPCClient defines the EVM JSON-RPC calls used by the bot.
type RPCClient interface {
	// Call executes eth_call against the latest block and returns the
	// raw hex result.
	Call(ctx context.Context, to, data string) (string, error)

	// TokenBalance returns owner's balance of an ERC-20 token scaled by
	// decimals.
	TokenBalance(ctx context.Context, token, owner string, decimals int32) (decimal.Decimal, error)
}
