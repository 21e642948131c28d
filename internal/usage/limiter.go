package usage

import (
	"context"
	"errors"

	"github.com/elicitlabs/elicit/internal/log"
)

// ProfileStore is the store surface the limiter needs. *Store satisfies
// it; tests substitute a fake.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Create(ctx context.Context, userID string, tier Tier) (*Profile, error)
	Increment(ctx context.Context, userID string) (*Profile, error)
}

// Limiter answers "may this user start another session" against the
// configured tier quotas.
type Limiter struct {
	store  ProfileStore
	quotas Quotas
	logger log.Logger
}

// NewLimiter creates a quota limiter.
func NewLimiter(store ProfileStore, quotas Quotas, logger log.Logger) *Limiter {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Limiter{store: store, quotas: quotas, logger: logger}
}

// Check resolves the user's profile (creating it on first contact) and
// compares usage against the tier limit.
//
// Any store failure produces a conservative deny with zeroed limits:
// when usage cannot be verified, the request is refused rather than
// risking over-quota consumption.
func (l *Limiter) Check(ctx context.Context, userID string) Decision {
	deny := Decision{Allowed: false, Tier: TierFree}
	if userID == "" {
		return deny
	}

	p, err := l.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		p, err = l.store.Create(ctx, userID, TierFree)
	}
	if err != nil {
		l.logger.Error("usage check failed, denying conservatively", "user", userID, "error", err)
		return deny
	}

	tier := p.Tier
	if !tier.Valid() {
		tier = TierFree
	}
	limit := l.quotas.For(tier)

	remaining := limit - p.UsageCount
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   p.UsageCount < limit,
		Limit:     limit,
		Remaining: remaining,
		Tier:      tier,
	}
}

// Increment records one consumed session. Callers treat failures as
// best-effort: the session itself already succeeded. An empty user ID is
// rejected before reaching the store, so the upsert can never create a
// profile row with a blank key.
func (l *Limiter) Increment(ctx context.Context, userID string) (*Profile, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	return l.store.Increment(ctx, userID)
}
