// Package chain wraps read-only contract calls against a prediction market
// contract and its associated position token contract. All calls run under a
// bounded timeout and stake values are returned as arbitrary-precision
// integers.
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// defaultCallTimeout bounds a single eth_call when the config does not set
// one.
const defaultCallTimeout = 10 * time.Second

// ClientConfig holds connection parameters for the Ethereum RPC client.
type ClientConfig struct {
	RPCURL      string
	CallTimeout time.Duration
}

// Client wraps an ethclient connection and carries the per-call timeout.
type Client struct {
	ec          *ethclient.Client
	callTimeout time.Duration
}

// New dials the RPC endpoint and verifies connectivity with a chain-id
// probe. It returns an error if the endpoint is unreachable.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("chain: rpc url is required")
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := ec.ChainID(probeCtx); err != nil {
		ec.Close()
		return nil, fmt.Errorf("chain: chain id probe: %w", err)
	}

	return &Client{ec: ec, callTimeout: timeout}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.ec.Close()
}
