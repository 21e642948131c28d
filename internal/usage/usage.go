// Package usage tracks per-user session consumption against tier quotas.
package usage

import (
	"errors"
	"time"
)

// ErrProfileNotFound indicates no usage profile exists for the user.
var ErrProfileNotFound = errors.New("usage profile not found")

// Tier is a billing tier. Unknown tiers are treated as free when
// resolving quotas, so a bad value can never widen a user's allowance.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	return t == TierFree || t == TierPro
}

// Profile is one user's usage record.
type Profile struct {
	UserID     string
	UsageCount int
	Tier       Tier
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Quotas holds the per-tier session limits.
type Quotas struct {
	Free int
	Pro  int
}

// For resolves the limit for a tier. Unknown tiers get the free limit.
func (q Quotas) For(t Tier) int {
	if t == TierPro {
		return q.Pro
	}
	return q.Free
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Tier      Tier
}
