package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 250 * time.Millisecond
)

// Client wraps go-ethereum RPC for read-only calls. Reads are retried with
// exponential backoff; nothing here signs or sends transactions.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	maxRetries   int
	retryBackoff time.Duration
}

// NewClient dials rpcURL. maxRetries < 0 disables retries.
func NewClient(ctx context.Context, rpcURL string, maxRetries int, retryBackoff time.Duration) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	if retryBackoff <= 0 {
		retryBackoff = DefaultRetryBackoff
	}

	return &Client{
		rpcClient:    rpcClient,
		ethClient:    ethclient.NewClient(rpcClient),
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	var id *big.Int
	err := WithRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		var err error
		id, err = c.ethClient.ChainID(ctx)
		return err
	})
	return id, err
}

// CallContract performs an eth_call for a contract method.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := WithRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		var err error
		out, err = c.ethClient.CallContract(ctx, msg, blockNumber)
		return err
	})
	return out, err
}

// CodeAt returns the deployed bytecode at account.
func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := WithRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		var err error
		out, err = c.ethClient.CodeAt(ctx, account, blockNumber)
		return err
	})
	return out, err
}

// BalanceAt returns the native balance of account.
func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	var out *big.Int
	err := WithRetry(ctx, c.maxRetries, c.retryBackoff, func(ctx context.Context) error {
		var err error
		out, err = c.ethClient.BalanceAt(ctx, account, blockNumber)
		return err
	})
	return out, err
}
