package books

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// ListApprovedByOwner returns up to limit approved books owned by
	// ownerID. Under RowScoped access the caller may only read their own
	// rows; ElevatedReadOnly may read any owner's approved rows.
	ListApprovedByOwner(ctx context.Context, callerID, ownerID uuid.UUID, access AccessLevel, limit int) ([]Book, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) ListApprovedByOwner(ctx context.Context, callerID, ownerID uuid.UUID, access AccessLevel, limit int) ([]Book, error) {
	switch access {
	case RowScoped:
		if callerID != ownerID {
			return nil, fmt.Errorf("row-scoped access cannot read owner %s as caller %s", ownerID, callerID)
		}
	case ElevatedReadOnly:
		// approved-only predicate below is the whole privilege boundary
	default:
		return nil, fmt.Errorf("unknown access level %q", access)
	}

	query := `
		SELECT id, owner_id, title, COALESCE(subtitle, ''), author,
		       COALESCE(description, ''), categories, approved, read_at, created_at
		FROM books
		WHERE owner_id = $1 AND approved = true
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying books for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var result []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Subtitle, &b.Author,
			&b.Description, &b.Categories, &b.Approved, &b.ReadAt, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning book row: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating book rows: %w", err)
	}
	return result, nil
}
