// Package metadata renders the dynamic token metadata document for a market
// position by composing live chain reads, odds derivation, and static asset
// selection.
package metadata

import (
	"fmt"

	"github.com/bbh233/backend/internal/odds"
)

// Asset keys for resolved outcomes. Unresolved positions use the odds tier
// name as the key.
const (
	KeyWon  = "won"
	KeyLost = "lost"
)

// assetKeys is every key a rendered document can select.
var assetKeys = []string{
	string(odds.TierHugeAdvantage),
	string(odds.TierSlightAdvantage),
	string(odds.TierInitial),
	string(odds.TierSlightDisadvantage),
	string(odds.TierHugeDisadvantage),
	KeyWon,
	KeyLost,
}

// AssetTable maps an asset key to the artwork URI rendered for it. It is
// injected configuration; derivation logic never hard-codes asset
// references.
type AssetTable map[string]string

// DefaultAssets builds the standard table under a base URI, one image per
// key, e.g. "ipfs://Qm.../slight_advantage.png". Entries in overrides
// replace the generated URI for their key.
func DefaultAssets(baseURI string, overrides map[string]string) AssetTable {
	table := make(AssetTable, len(assetKeys))
	for _, key := range assetKeys {
		table[key] = fmt.Sprintf("%s/%s.png", baseURI, key)
	}
	for key, uri := range overrides {
		table[key] = uri
	}
	return table
}

// Lookup returns the asset URI for a key. A missing key is a configuration
// fault and fails the render.
func (t AssetTable) Lookup(key string) (string, error) {
	uri, ok := t[key]
	if !ok || uri == "" {
		return "", fmt.Errorf("metadata: no asset configured for key %q", key)
	}
	return uri, nil
}
