// Package memory provides the default in-memory resolution store. Records
// are lost on process restart; deployments that need persistence select the
// redis or postgres backend, which implement the same contract.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/bbh233/backend/internal/domain"
)

// ResolutionStore is a mutex-guarded map keyed by lowercase market address.
type ResolutionStore struct {
	mu          sync.RWMutex
	resolutions map[string]domain.Resolution
}

var _ domain.ResolutionStore = (*ResolutionStore)(nil)

// NewResolutionStore creates an empty store.
func NewResolutionStore() *ResolutionStore {
	return &ResolutionStore{
		resolutions: make(map[string]domain.Resolution),
	}
}

// Set upserts the resolution under the normalized address key. Re-storing
// the same record is a no-op in effect; concurrent writes to one key are
// last-write-wins.
func (s *ResolutionStore) Set(ctx context.Context, res domain.Resolution) error {
	key := domain.NormalizeAddress(res.MarketAddress)
	if key == "" {
		return fmt.Errorf("memory: empty market address: %w", domain.ErrInvalidInput)
	}
	res.MarketAddress = key

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolutions[key] = res
	return nil
}

// Get returns the resolution stored for the address, or ErrNotFound. Index 0
// round-trips as a stored value, never as absence.
func (s *ResolutionStore) Get(ctx context.Context, marketAddress string) (domain.Resolution, error) {
	key := domain.NormalizeAddress(marketAddress)

	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resolutions[key]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("memory: resolution for %s: %w", key, domain.ErrNotFound)
	}
	return res, nil
}
