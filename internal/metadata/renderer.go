package metadata

import (
	"context"
	"fmt"
	"math/big"

	"github.com/bbh233/backend/internal/domain"
	"github.com/bbh233/backend/internal/odds"
)

// defaultDescription is the fixed description rendered on every document.
const defaultDescription = "A tokenized position in an on-chain prediction market. " +
	"Artwork and attributes update with live pooled stakes and resolution state."

// positionReader is the chain access the renderer depends on.
type positionReader interface {
	PositionView(ctx context.Context, marketAddress string, tokenID *big.Int) (domain.PositionView, error)
}

// Document is a rendered token metadata document in the shape NFT
// marketplaces index.
type Document struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Attribute is one trait entry on a document.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// Renderer builds metadata documents from live chain state. Outcome state
// comes solely from the market contract's own resolved flag and winning
// index; the off-chain resolution store is never consulted here, so a
// position shows Won or Lost only once the oracle has published on chain.
type Renderer struct {
	reader positionReader
	assets AssetTable
}

// NewRenderer creates a Renderer over the given chain reader and asset
// table.
func NewRenderer(reader positionReader, assets AssetTable) *Renderer {
	return &Renderer{reader: reader, assets: assets}
}

// Render produces the metadata document for one market position. Odds are
// always relative to the option the position itself backs. Any failure in
// the read, derivation, or asset lookup fails the whole render; a partial
// document is never returned.
func (r *Renderer) Render(ctx context.Context, marketAddress string, tokenID *big.Int) (Document, error) {
	view, err := r.reader.PositionView(ctx, marketAddress, tokenID)
	if err != nil {
		return Document{}, fmt.Errorf("metadata: read position %s/%s: %w", marketAddress, tokenID, err)
	}

	opt, ok := view.Market.OptionByIndex(view.OptionIndex)
	if !ok {
		return Document{}, fmt.Errorf("metadata: option index %s out of range on %s: %w",
			view.OptionIndex, view.Market.Address, domain.ErrChainRead)
	}

	result, err := odds.Derive(view.Market.TotalStaked, opt.Staked,
		view.Market.Resolved, view.Market.WinningOption, view.OptionIndex)
	if err != nil {
		return Document{}, fmt.Errorf("metadata: derive odds for %s token %s: %w",
			view.Market.Address, tokenID, err)
	}

	image, err := r.assets.Lookup(assetKeyFor(result))
	if err != nil {
		return Document{}, err
	}

	return Document{
		Name:        fmt.Sprintf("Prediction Market Position #%s", tokenID),
		Description: defaultDescription,
		Image:       image,
		Attributes: []Attribute{
			{TraitType: "Option", Value: opt.Name},
			{TraitType: "Odds", Value: result.Display() + "%"},
			{TraitType: "Outcome", Value: string(result.State)},
		},
	}, nil
}

func assetKeyFor(result odds.Result) string {
	switch result.State {
	case odds.StateWon:
		return KeyWon
	case odds.StateLost:
		return KeyLost
	default:
		return string(odds.TierFor(result.Percentage))
	}
}
