package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EntitlementGate decides whether a caller holds an active paid
// subscription. Every failure path answers "no": a caller is entitled only
// when the profile store positively says so.
type EntitlementGate struct {
	repo  Repository
	cache redis.Cmdable
	ttl   time.Duration
}

// NewEntitlementGate creates the gate. cache may be nil, in which case every
// check hits the repository.
func NewEntitlementGate(repo Repository, cache redis.Cmdable) *EntitlementGate {
	return &EntitlementGate{
		repo:  repo,
		cache: cache,
		ttl:   60 * time.Second,
	}
}

func entitlementKey(userID uuid.UUID) string {
	return fmt.Sprintf("entitled:%s", userID)
}

// Entitled reports whether userID may use the service.
func (g *EntitlementGate) Entitled(ctx context.Context, userID uuid.UUID) bool {
	if g.cache != nil {
		if val, err := g.cache.Get(ctx, entitlementKey(userID)).Result(); err == nil {
			return val == "1"
		}
		// cache miss or error: fall through to the repository
	}

	entitled := g.lookup(ctx, userID)

	if g.cache != nil {
		val := "0"
		if entitled {
			val = "1"
		}
		if err := g.cache.Set(ctx, entitlementKey(userID), val, g.ttl).Err(); err != nil {
			slog.Warn("entitlement cache write failed", "error", err, "user_id", userID)
		}
	}

	return entitled
}

func (g *EntitlementGate) lookup(ctx context.Context, userID uuid.UUID) bool {
	p, err := g.repo.GetByID(ctx, userID)
	if err != nil {
		slog.Warn("entitlement lookup failed", "error", err, "user_id", userID)
		return false
	}
	if p == nil {
		return false
	}
	if !p.Paid() || p.Status != StatusActive {
		return false
	}
	if p.SubscriptionExpiresAt != nil && !p.SubscriptionExpiresAt.After(time.Now()) {
		return false
	}
	return true
}
