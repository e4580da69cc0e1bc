package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/api"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/profile"
)

// TargetResolver decides whose library a question is about and which
// datastore privilege the retrieval queries run under.
type TargetResolver struct {
	profiles profile.Repository
}

func NewTargetResolver(profiles profile.Repository) *TargetResolver {
	return &TargetResolver{profiles: profiles}
}

// Resolve maps (caller, optional target username) to a QueryContext.
// A named user that does not exist is a hard not-found, never a silent
// empty shelf.
func (r *TargetResolver) Resolve(ctx context.Context, callerID uuid.UUID, targetUsername string) (*QueryContext, error) {
	username := strings.ToLower(strings.TrimSpace(targetUsername))
	if username == "" {
		return &QueryContext{
			CallerID:      callerID,
			TargetOwnerID: callerID,
			OwnLibrary:    true,
			Access:        books.RowScoped,
		}, nil
	}

	// Public-profile lookup under elevated read access: only approved,
	// non-private book metadata is ever exposed through this path.
	target, err := r.profiles.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolving target username: %w", err)
	}
	if target == nil {
		return nil, api.NewNotFoundError("user not found")
	}

	return &QueryContext{
		CallerID:      callerID,
		TargetOwnerID: target.ID,
		OwnLibrary:    target.ID == callerID,
		Access:        books.ElevatedReadOnly,
	}, nil
}
