package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the subset of the account profile this service reads:
// identity for target resolution and subscription state for the
// entitlement gate.
type Profile struct {
	ID                    uuid.UUID
	Username              string
	Tier                  string
	Status                string
	SubscriptionExpiresAt *time.Time
}

const (
	TierFree    = "free"
	TierPremium = "premium"
	TierPro     = "pro"

	StatusActive = "active"
)

// Paid reports whether the profile's tier is a paid one.
func (p *Profile) Paid() bool {
	return p.Tier == TierPremium || p.Tier == TierPro
}
