package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/api"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/profile"
)

// stubProfiles is an in-memory profile.Repository.
type stubProfiles struct {
	byID       map[uuid.UUID]*profile.Profile
	byUsername map[string]*profile.Profile
	err        error
}

func (s *stubProfiles) GetByID(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[id], nil
}

func (s *stubProfiles) GetByUsername(_ context.Context, username string) (*profile.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byUsername[username], nil
}

func TestTargetResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	caller := uuid.New()
	friend := &profile.Profile{ID: uuid.New(), Username: "BookWorm42"}

	profiles := &stubProfiles{byUsername: map[string]*profile.Profile{"bookworm42": friend}}
	resolver := NewTargetResolver(profiles)

	t.Run("no target means own library, row scoped", func(t *testing.T) {
		qc, err := resolver.Resolve(ctx, caller, "")
		require.NoError(t, err)
		assert.Equal(t, caller, qc.TargetOwnerID)
		assert.True(t, qc.OwnLibrary)
		assert.Equal(t, books.RowScoped, qc.Access)
	})

	t.Run("named target is case-insensitive and elevated", func(t *testing.T) {
		qc, err := resolver.Resolve(ctx, caller, "  BOOKworm42 ")
		require.NoError(t, err)
		assert.Equal(t, friend.ID, qc.TargetOwnerID)
		assert.False(t, qc.OwnLibrary)
		assert.Equal(t, books.ElevatedReadOnly, qc.Access)
	})

	t.Run("unknown target is not found", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, caller, "nobody")
		require.Error(t, err)

		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 404, appErr.Code)
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		broken := NewTargetResolver(&stubProfiles{err: fmt.Errorf("connection refused")})
		_, err := broken.Resolve(ctx, caller, "bookworm42")
		require.Error(t, err)

		var appErr *api.AppError
		assert.False(t, errors.As(err, &appErr))
	})
}
