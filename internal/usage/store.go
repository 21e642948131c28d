package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists usage profiles in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a usage store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get loads a profile. Returns ErrProfileNotFound when absent.
func (s *Store) Get(ctx context.Context, userID string) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, usage_count, tier, created_at, updated_at
		FROM usage_profiles
		WHERE user_id = $1`,
		userID)

	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("getting usage profile: %w", err)
	}
	return p, nil
}

// Create inserts a profile with zero usage. Safe under races: when a
// concurrent request already inserted the row, the existing profile is
// returned unchanged.
func (s *Store) Create(ctx context.Context, userID string, tier Tier) (*Profile, error) {
	if !tier.Valid() {
		tier = TierFree
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO usage_profiles (user_id, tier)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`,
		userID, string(tier))
	if err != nil {
		return nil, fmt.Errorf("creating usage profile: %w", err)
	}

	return s.Get(ctx, userID)
}

// Increment atomically adds one to the usage counter, creating the
// profile on first use. The increment happens in SQL, never as a
// read-modify-write in Go.
func (s *Store) Increment(ctx context.Context, userID string) (*Profile, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO usage_profiles (user_id, usage_count, tier)
		VALUES ($1, 1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET usage_count = usage_profiles.usage_count + 1, updated_at = now()
		RETURNING user_id, usage_count, tier, created_at, updated_at`,
		userID, string(TierFree))

	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("incrementing usage: %w", err)
	}
	return p, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var (
		p    Profile
		tier string
	)
	if err := row.Scan(&p.UserID, &p.UsageCount, &tier, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Tier = Tier(tier)
	return &p, nil
}
