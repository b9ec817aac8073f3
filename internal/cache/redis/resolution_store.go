package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bbh233/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResolutionStore implements domain.ResolutionStore on Redis string keys
// with JSON-serialized records. Records never expire; a resolution is final
// once stored.
//
// Key schema:
//
//	resolution:{address} - JSON-encoded domain.Resolution, address lowercase
type ResolutionStore struct {
	rdb *redis.Client
}

var _ domain.ResolutionStore = (*ResolutionStore)(nil)

// NewResolutionStore creates a ResolutionStore backed by the given Client.
func NewResolutionStore(c *Client) *ResolutionStore {
	return &ResolutionStore{rdb: c.Underlying()}
}

func resolutionKey(addr string) string { return "resolution:" + addr }

// Set upserts the resolution under the normalized address key. SET on a
// single key gives the last-write-wins semantics the store contract asks
// for.
func (rs *ResolutionStore) Set(ctx context.Context, res domain.Resolution) error {
	key := domain.NormalizeAddress(res.MarketAddress)
	if key == "" {
		return fmt.Errorf("redis: empty market address: %w", domain.ErrInvalidInput)
	}
	res.MarketAddress = key

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis: marshal resolution %s: %w", key, err)
	}

	if err := rs.rdb.Set(ctx, resolutionKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set resolution %s: %w", key, err)
	}
	return nil
}

// Get retrieves the resolution for the address.
// It returns domain.ErrNotFound when no record exists.
func (rs *ResolutionStore) Get(ctx context.Context, marketAddress string) (domain.Resolution, error) {
	key := domain.NormalizeAddress(marketAddress)

	data, err := rs.rdb.Get(ctx, resolutionKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Resolution{}, fmt.Errorf("redis: resolution for %s: %w", key, domain.ErrNotFound)
		}
		return domain.Resolution{}, fmt.Errorf("redis: get resolution %s: %w", key, err)
	}

	var res domain.Resolution
	if err := json.Unmarshal(data, &res); err != nil {
		return domain.Resolution{}, fmt.Errorf("redis: decode resolution %s: %w", key, err)
	}
	return res, nil
}
