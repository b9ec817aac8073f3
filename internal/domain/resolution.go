package domain

import (
	"context"
	"strings"
	"time"
)

// Resolution records the winning option index for a resolved market. The key
// is the market contract address normalized to lowercase hex. Index 0 is a
// valid winner and is distinct from "no resolution stored".
type Resolution struct {
	MarketAddress      string
	WinningOptionIndex int64
	StoredAt           time.Time
}

// NormalizeAddress lowercases a hex address so that mixed-case writes and
// reads hit the same key.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ResolutionStore is the key-value record of market → winning option index.
// Implementations provide single-key atomic upsert and lookup; concurrent
// writes to the same key are last-write-wins. Get returns ErrNotFound when
// no record exists for the address.
type ResolutionStore interface {
	Set(ctx context.Context, res Resolution) error
	Get(ctx context.Context, marketAddress string) (Resolution, error)
}

// ResolutionEvent is published when a resolution is stored, for subscribers
// such as the websocket feed and operator notifications.
type ResolutionEvent struct {
	MarketAddress      string    `json:"marketAddress"`
	WinningOptionIndex int64     `json:"winningOptionIndex"`
	StoredAt           time.Time `json:"storedAt"`
}
