package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/bbh233/backend/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// maxOptionCount caps the per-option read fan-out. A market reporting more
// options than this is treated as a malformed read rather than a reason to
// spawn unbounded calls.
const maxOptionCount = 64

// contractCaller is the subset of the eth client the reader depends on.
type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader issues the read-only contract calls that make up market snapshots
// and position views. A failed call never degrades to a zero value; the
// whole read fails with a domain error instead.
type Reader struct {
	caller  contractCaller
	timeout time.Duration
}

// NewReader creates a Reader backed by the given client.
func NewReader(c *Client) *Reader {
	return &Reader{caller: c.ec, timeout: c.callTimeout}
}

// MarketSnapshot reads the full state of a market contract. The option count
// is read first; the per-option reads and the aggregate reads then run
// concurrently. Any single failing call fails the snapshot.
func (r *Reader) MarketSnapshot(ctx context.Context, marketAddress string) (domain.MarketSnapshot, error) {
	if !common.IsHexAddress(marketAddress) {
		return domain.MarketSnapshot{}, fmt.Errorf("chain: market address %q: %w", marketAddress, domain.ErrInvalidInput)
	}
	addr := common.HexToAddress(marketAddress)

	count, err := r.callBigInt(ctx, marketABI, addr, "optionCount")
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	if !count.IsUint64() || count.Uint64() > maxOptionCount {
		return domain.MarketSnapshot{}, fmt.Errorf("chain: implausible option count %s on %s: %w", count, addr.Hex(), domain.ErrChainRead)
	}
	n := int(count.Uint64())

	snap := domain.MarketSnapshot{
		Address: domain.NormalizeAddress(marketAddress),
		Options: make([]domain.OptionState, n),
	}

	var (
		winning  *big.Int
		position common.Address
	)

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			outs, err := r.call(gctx, marketABI, addr, "getOption", big.NewInt(int64(i)))
			if err != nil {
				return err
			}
			if len(outs) != 2 {
				return malformedResult("getOption", addr)
			}
			name, okName := outs[0].(string)
			staked, okStaked := outs[1].(*big.Int)
			if !okName || !okStaked {
				return malformedResult("getOption", addr)
			}
			snap.Options[i] = domain.OptionState{Index: uint64(i), Name: name, Staked: staked}
			return nil
		})
	}

	g.Go(func() error {
		v, err := r.callBigInt(gctx, marketABI, addr, "totalStaked")
		if err != nil {
			return err
		}
		snap.TotalStaked = v
		return nil
	})

	g.Go(func() error {
		v, err := r.callBool(gctx, marketABI, addr, "isResolved")
		if err != nil {
			return err
		}
		snap.Resolved = v
		return nil
	})

	g.Go(func() error {
		v, err := r.callBigInt(gctx, marketABI, addr, "winningOptionIndex")
		if err != nil {
			return err
		}
		winning = v
		return nil
	})

	g.Go(func() error {
		v, err := r.callAddress(gctx, marketABI, addr, "positionContract")
		if err != nil {
			return err
		}
		position = v
		return nil
	})

	if err := g.Wait(); err != nil {
		return domain.MarketSnapshot{}, err
	}

	snap.PositionContract = domain.NormalizeAddress(position.Hex())
	// The winning index slot reads as zero on unresolved markets; only a
	// resolved market's value is meaningful.
	if snap.Resolved {
		snap.WinningOption = winning
	}

	return snap, nil
}

// PositionOption returns the option index the given position token backs.
func (r *Reader) PositionOption(ctx context.Context, positionContract string, tokenID *big.Int) (*big.Int, error) {
	if !common.IsHexAddress(positionContract) {
		return nil, fmt.Errorf("chain: position contract %q: %w", positionContract, domain.ErrInvalidInput)
	}
	if tokenID == nil || tokenID.Sign() < 0 {
		return nil, fmt.Errorf("chain: token id must be a non-negative integer: %w", domain.ErrInvalidInput)
	}
	return r.callBigInt(ctx, positionsABI, common.HexToAddress(positionContract), "positionOption", tokenID)
}

// PositionView reads the market snapshot and then the option the token
// backs. The option lookup needs the position contract address from the
// snapshot, so it is sequenced after the concurrent market reads.
func (r *Reader) PositionView(ctx context.Context, marketAddress string, tokenID *big.Int) (domain.PositionView, error) {
	snap, err := r.MarketSnapshot(ctx, marketAddress)
	if err != nil {
		return domain.PositionView{}, err
	}

	optionIdx, err := r.PositionOption(ctx, snap.PositionContract, tokenID)
	if err != nil {
		return domain.PositionView{}, err
	}

	return domain.PositionView{Market: snap, TokenID: tokenID, OptionIndex: optionIdx}, nil
}

// call packs the method call, executes it under the per-call timeout, and
// unpacks the raw result.
func (r *Reader) call(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w: %v", method, domain.ErrChainRead, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.caller.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		base := domain.ErrChainRead
		if errors.Is(err, context.DeadlineExceeded) {
			base = domain.ErrUpstreamTimeout
		}
		return nil, fmt.Errorf("chain: call %s on %s: %w: %v", method, to.Hex(), base, err)
	}
	if len(raw) == 0 {
		// eth_call against an address without code returns empty data.
		return nil, fmt.Errorf("chain: call %s on %s: no contract code: %w", method, to.Hex(), domain.ErrChainRead)
	}

	outs, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s on %s: %w: %v", method, to.Hex(), domain.ErrChainRead, err)
	}
	return outs, nil
}

func (r *Reader) callBigInt(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...any) (*big.Int, error) {
	outs, err := r.call(ctx, contractABI, to, method, args...)
	if err != nil {
		return nil, err
	}
	if len(outs) != 1 {
		return nil, malformedResult(method, to)
	}
	v, ok := outs[0].(*big.Int)
	if !ok {
		return nil, malformedResult(method, to)
	}
	return v, nil
}

func (r *Reader) callBool(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...any) (bool, error) {
	outs, err := r.call(ctx, contractABI, to, method, args...)
	if err != nil {
		return false, err
	}
	if len(outs) != 1 {
		return false, malformedResult(method, to)
	}
	v, ok := outs[0].(bool)
	if !ok {
		return false, malformedResult(method, to)
	}
	return v, nil
}

func (r *Reader) callAddress(ctx context.Context, contractABI abi.ABI, to common.Address, method string, args ...any) (common.Address, error) {
	outs, err := r.call(ctx, contractABI, to, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	if len(outs) != 1 {
		return common.Address{}, malformedResult(method, to)
	}
	v, ok := outs[0].(common.Address)
	if !ok {
		return common.Address{}, malformedResult(method, to)
	}
	return v, nil
}

func malformedResult(method string, to common.Address) error {
	return fmt.Errorf("chain: %s on %s: unexpected result shape: %w", method, to.Hex(), domain.ErrChainRead)
}
