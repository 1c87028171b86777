package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Backend is the slice of the Ethereum JSON-RPC surface the service calls
type Backend interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

var _ Backend = (*ethclient.Client)(nil)

// RPCCaller issues raw JSON-RPC calls for provider specific methods
type RPCCaller interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Client bundles the typed Ethereum client with its raw RPC connection
type Client struct {
	*ethclient.Client
	rpc *rpc.Client
}

// Dial connects to the JSON-RPC endpoint at rawurl
func Dial(rawurl string) (*Client, error) {
	rc, err := rpc.Dial(rawurl)
	if err != nil {
		return nil, err
	}
	return &Client{Client: ethclient.NewClient(rc), rpc: rc}, nil
}

// RPC exposes the raw JSON-RPC client
func (c *Client) RPC() *rpc.Client { return c.rpc }

// Close shuts the underlying connection down
func (c *Client) Close() { c.rpc.Close() }
