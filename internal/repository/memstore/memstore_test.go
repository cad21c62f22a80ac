package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-multi-auth/internal/model"
)

func TestPrincipalStore_DuplicateEmailIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	s := NewPrincipalStore(model.PrincipalUser)

	_, err := s.Create(ctx, model.Principal{Name: "Jane", Email: "jane@example.com"})
	require.NoError(t, err)

	_, err = s.Create(ctx, model.Principal{Name: "Jane", Email: "JANE@example.com"})
	assert.ErrorIs(t, err, model.ErrPersistence)
}

func TestTokenStore_PairConsumedOnce(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore()
	now := time.Now()

	require.NoError(t, s.CreateTokenPair(ctx,
		model.AccessToken{ID: "at", ExpiresAt: now.Add(time.Hour)},
		model.RefreshToken{ID: "rt", ExpiresAt: now.Add(time.Hour)},
	))

	rt, err := s.ConsumeRefreshToken(ctx, "rt")
	require.NoError(t, err)
	assert.Equal(t, "at", rt.AccessTokenID)

	_, err = s.ConsumeRefreshToken(ctx, "rt")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestClientStore_LatestSkipsRevoked(t *testing.T) {
	ctx := context.Background()
	s := NewClientStore()

	live, err := s.Create(ctx, model.OAuthClient{Provider: model.ProviderManagers})
	require.NoError(t, err)
	_, err = s.Create(ctx, model.OAuthClient{Provider: model.ProviderManagers, Revoked: true})
	require.NoError(t, err)

	got, err := s.LatestByProvider(ctx, model.ProviderManagers)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
}
