package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// GetByID returns the profile for a user id, or (nil, nil) on a miss.
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	// GetByUsername resolves a public username (case-insensitive) to a
	// profile, or (nil, nil) on a miss. Runs under elevated read access:
	// usernames are public-profile data.
	GetByUsername(ctx context.Context, username string) (*Profile, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const profileColumns = `id, username, subscription_tier, subscription_status, subscription_expires_at`

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	p := &Profile{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Username, &p.Tier, &p.Status, &p.SubscriptionExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying profile by id: %w", err)
	}
	return p, nil
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE lower(username) = $1`

	p := &Profile{}
	err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(username))).Scan(
		&p.ID, &p.Username, &p.Tier, &p.Status, &p.SubscriptionExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying profile by username: %w", err)
	}
	return p, nil
}
