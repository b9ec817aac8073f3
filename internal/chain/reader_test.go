package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/bbh233/backend/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	testMarketAddr   = "0x1111111111111111111111111111111111111111"
	testPositionAddr = "0x2222222222222222222222222222222222222222"
)

type fakeOption struct {
	name   string
	staked *big.Int
}

// fakeChain answers ABI-encoded eth_call requests from in-memory state, so
// reader behavior is exercised without a node.
type fakeChain struct {
	options          []fakeOption
	totalStaked      *big.Int
	resolved         bool
	winningOption    *big.Int
	positionContract common.Address
	positionOptions  map[uint64]*big.Int

	failMethod string
	failErr    error
	noCode     bool
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.noCode {
		return nil, nil
	}

	method, args, err := decodeCall(msg.Data)
	if err != nil {
		return nil, err
	}
	if method.Name == f.failMethod {
		return nil, f.failErr
	}

	switch method.Name {
	case "optionCount":
		return method.Outputs.Pack(big.NewInt(int64(len(f.options))))
	case "getOption":
		idx := args[0].(*big.Int).Uint64()
		if idx >= uint64(len(f.options)) {
			return nil, errors.New("option index out of range")
		}
		return method.Outputs.Pack(f.options[idx].name, f.options[idx].staked)
	case "totalStaked":
		return method.Outputs.Pack(f.totalStaked)
	case "isResolved":
		return method.Outputs.Pack(f.resolved)
	case "winningOptionIndex":
		w := f.winningOption
		if w == nil {
			w = big.NewInt(0)
		}
		return method.Outputs.Pack(w)
	case "positionContract":
		return method.Outputs.Pack(f.positionContract)
	case "positionOption":
		id := args[0].(*big.Int)
		v, ok := f.positionOptions[id.Uint64()]
		if !ok {
			return nil, errors.New("unknown token id")
		}
		return method.Outputs.Pack(v)
	}
	return nil, fmt.Errorf("unhandled method %s", method.Name)
}

func decodeCall(data []byte) (abi.Method, []any, error) {
	if len(data) < 4 {
		return abi.Method{}, nil, errors.New("short calldata")
	}
	for _, contractABI := range []abi.ABI{marketABI, positionsABI} {
		for _, m := range contractABI.Methods {
			if bytes.Equal(m.ID, data[:4]) {
				args, err := m.Inputs.Unpack(data[4:])
				return m, args, err
			}
		}
	}
	return abi.Method{}, nil, errors.New("unknown selector")
}

func newTestReader(f *fakeChain) *Reader {
	return &Reader{caller: f, timeout: time.Second}
}

func newFakeMarket() *fakeChain {
	return &fakeChain{
		options: []fakeOption{
			{name: "Yes", staked: big.NewInt(30)},
			{name: "No", staked: big.NewInt(70)},
		},
		totalStaked:      big.NewInt(100),
		positionContract: common.HexToAddress(testPositionAddr),
		positionOptions: map[uint64]*big.Int{
			7: big.NewInt(1),
		},
	}
}

// --- MarketSnapshot ---

func TestMarketSnapshot_Unresolved(t *testing.T) {
	r := newTestReader(newFakeMarket())

	snap, err := r.MarketSnapshot(context.Background(), testMarketAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.Address != testMarketAddr {
		t.Errorf("address = %s, want %s", snap.Address, testMarketAddr)
	}
	if len(snap.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(snap.Options))
	}
	if snap.Options[0].Name != "Yes" || snap.Options[0].Staked.Cmp(big.NewInt(30)) != 0 {
		t.Errorf("option 0 = %+v", snap.Options[0])
	}
	if snap.Options[1].Name != "No" || snap.Options[1].Staked.Cmp(big.NewInt(70)) != 0 {
		t.Errorf("option 1 = %+v", snap.Options[1])
	}
	if snap.TotalStaked.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("total staked = %s, want 100", snap.TotalStaked)
	}
	if snap.Resolved {
		t.Error("expected unresolved market")
	}
	if snap.WinningOption != nil {
		t.Errorf("winning option should be nil while unresolved, got %s", snap.WinningOption)
	}
	if snap.PositionContract != testPositionAddr {
		t.Errorf("position contract = %s, want %s", snap.PositionContract, testPositionAddr)
	}
}

func TestMarketSnapshot_Resolved(t *testing.T) {
	f := newFakeMarket()
	f.resolved = true
	f.winningOption = big.NewInt(1)
	r := newTestReader(f)

	snap, err := r.MarketSnapshot(context.Background(), testMarketAddr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Resolved {
		t.Fatal("expected resolved market")
	}
	if snap.WinningOption == nil || snap.WinningOption.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("winning option = %v, want 1", snap.WinningOption)
	}
}

func TestMarketSnapshot_MixedCaseAddressNormalized(t *testing.T) {
	r := newTestReader(newFakeMarket())

	snap, err := r.MarketSnapshot(context.Background(), "0xAbCdEf1111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Address != "0xabcdef1111111111111111111111111111111111" {
		t.Errorf("address not lowercased: %s", snap.Address)
	}
}

func TestMarketSnapshot_InvalidAddress(t *testing.T) {
	r := newTestReader(newFakeMarket())

	_, err := r.MarketSnapshot(context.Background(), "not-an-address")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMarketSnapshot_SingleFailingReadFailsAll(t *testing.T) {
	f := newFakeMarket()
	f.failMethod = "totalStaked"
	f.failErr = errors.New("connection refused")
	r := newTestReader(f)

	_, err := r.MarketSnapshot(context.Background(), testMarketAddr)
	if !errors.Is(err, domain.ErrChainRead) {
		t.Errorf("expected ErrChainRead, got %v", err)
	}
}

func TestMarketSnapshot_TimeoutMapsToUpstreamTimeout(t *testing.T) {
	f := newFakeMarket()
	f.failMethod = "isResolved"
	f.failErr = context.DeadlineExceeded
	r := newTestReader(f)

	_, err := r.MarketSnapshot(context.Background(), testMarketAddr)
	if !errors.Is(err, domain.ErrUpstreamTimeout) {
		t.Errorf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestMarketSnapshot_NoContractCode(t *testing.T) {
	f := newFakeMarket()
	f.noCode = true
	r := newTestReader(f)

	_, err := r.MarketSnapshot(context.Background(), testMarketAddr)
	if !errors.Is(err, domain.ErrChainRead) {
		t.Errorf("expected ErrChainRead for empty call data, got %v", err)
	}
}

func TestMarketSnapshot_ImplausibleOptionCount(t *testing.T) {
	f := newFakeMarket()
	f.options = make([]fakeOption, maxOptionCount+1)
	for i := range f.options {
		f.options[i] = fakeOption{name: "opt", staked: big.NewInt(0)}
	}
	r := newTestReader(f)

	_, err := r.MarketSnapshot(context.Background(), testMarketAddr)
	if !errors.Is(err, domain.ErrChainRead) {
		t.Errorf("expected ErrChainRead for oversized option set, got %v", err)
	}
}

// --- PositionOption / PositionView ---

func TestPositionOption_NegativeTokenID(t *testing.T) {
	r := newTestReader(newFakeMarket())

	_, err := r.PositionOption(context.Background(), testPositionAddr, big.NewInt(-1))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPositionView_HappyPath(t *testing.T) {
	r := newTestReader(newFakeMarket())

	view, err := r.PositionView(context.Background(), testMarketAddr, big.NewInt(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.OptionIndex.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("option index = %s, want 1", view.OptionIndex)
	}
	if view.TokenID.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("token id = %s, want 7", view.TokenID)
	}
	if view.Market.TotalStaked.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("snapshot not carried through, total = %s", view.Market.TotalStaked)
	}
}

func TestPositionView_UnknownTokenFails(t *testing.T) {
	r := newTestReader(newFakeMarket())

	_, err := r.PositionView(context.Background(), testMarketAddr, big.NewInt(999))
	if !errors.Is(err, domain.ErrChainRead) {
		t.Errorf("expected ErrChainRead, got %v", err)
	}
}
