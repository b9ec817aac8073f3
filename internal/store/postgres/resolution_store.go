package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bbh233/backend/internal/domain"
)

// ResolutionStore implements domain.ResolutionStore using PostgreSQL. The
// primary key on market_address gives the single-key upsert semantics the
// store contract asks for.
type ResolutionStore struct {
	pool *pgxpool.Pool
}

var _ domain.ResolutionStore = (*ResolutionStore)(nil)

// NewResolutionStore creates a ResolutionStore backed by the given
// connection pool.
func NewResolutionStore(pool *pgxpool.Pool) *ResolutionStore {
	return &ResolutionStore{pool: pool}
}

// Set upserts the resolution under the normalized address key.
func (s *ResolutionStore) Set(ctx context.Context, res domain.Resolution) error {
	key := domain.NormalizeAddress(res.MarketAddress)
	if key == "" {
		return fmt.Errorf("postgres: empty market address: %w", domain.ErrInvalidInput)
	}

	const query = `
		INSERT INTO resolutions (market_address, winning_option_index)
		VALUES ($1, $2)
		ON CONFLICT (market_address) DO UPDATE SET
			winning_option_index = EXCLUDED.winning_option_index,
			updated_at           = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, res.WinningOptionIndex); err != nil {
		return fmt.Errorf("postgres: upsert resolution %s: %w", key, err)
	}
	return nil
}

// Get returns the resolution stored for the address.
// It returns domain.ErrNotFound when no row exists.
func (s *ResolutionStore) Get(ctx context.Context, marketAddress string) (domain.Resolution, error) {
	key := domain.NormalizeAddress(marketAddress)

	const query = `
		SELECT market_address, winning_option_index, stored_at
		FROM resolutions
		WHERE market_address = $1`

	var res domain.Resolution
	err := s.pool.QueryRow(ctx, query, key).Scan(
		&res.MarketAddress, &res.WinningOptionIndex, &res.StoredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Resolution{}, fmt.Errorf("postgres: resolution for %s: %w", key, domain.ErrNotFound)
		}
		return domain.Resolution{}, fmt.Errorf("postgres: get resolution %s: %w", key, err)
	}
	return res, nil
}
