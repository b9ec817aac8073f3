// Package oracle fetches stored resolutions from the relay HTTP API and
// encodes them as the uint256 word an oracle contract submission expects.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/bbh233/backend/internal/domain"
)

// uint256T is the ABI type of a winning option index on chain.
var uint256T = mustNewType("uint256")

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("oracle: invalid abi type %s: %v", t, err))
	}
	return typ
}

// Client reads resolutions from a relay instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the relay at baseURL. The resolution read
// path is public, so no credentials are needed.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolution fetches the stored winning option index for a market. An
// unresolved market maps to domain.ErrNotFound.
func (c *Client) Resolution(ctx context.Context, marketAddress string) (int64, error) {
	url := fmt.Sprintf("%s/get-resolution/%s", c.baseURL, marketAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("oracle: create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("oracle: fetch resolution for %s: %w", marketAddress, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return 0, fmt.Errorf("oracle: market %s: %w", marketAddress, domain.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("oracle: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		WinningOptionIndex *int64 `json:"winningOptionIndex"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("oracle: decode resolution for %s: %w", marketAddress, err)
	}
	if payload.WinningOptionIndex == nil {
		return 0, fmt.Errorf("oracle: response for %s missing winningOptionIndex", marketAddress)
	}

	return *payload.WinningOptionIndex, nil
}

// EncodeIndex packs a winning option index into the 32-byte big-endian
// uint256 word used in oracle contract calldata.
func EncodeIndex(index int64) ([]byte, error) {
	if index < 0 {
		return nil, fmt.Errorf("oracle: index must be non-negative: %w", domain.ErrInvalidInput)
	}

	args := abi.Arguments{{Type: uint256T}}
	word, err := args.Pack(big.NewInt(index))
	if err != nil {
		return nil, fmt.Errorf("oracle: pack index %d: %w", index, err)
	}
	return word, nil
}

// ResolutionWord fetches a market's resolution and returns it already
// encoded for submission, along with the raw index.
func (c *Client) ResolutionWord(ctx context.Context, marketAddress string) ([]byte, int64, error) {
	index, err := c.Resolution(ctx, marketAddress)
	if err != nil {
		return nil, 0, err
	}
	word, err := EncodeIndex(index)
	if err != nil {
		return nil, 0, err
	}
	return word, index, nil
}
