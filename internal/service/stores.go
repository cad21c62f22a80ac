package service

import (
	"context"
	"fmt"

	"go-multi-auth/internal/model"
)

// PrincipalStore is the slice of a principal repository the auth flow needs.
type PrincipalStore interface {
	Create(ctx context.Context, p model.Principal) (model.Principal, error)
	Find(ctx context.Context, id int64) (model.Principal, error)
	FindByField(ctx context.Context, field string, value any) (model.Principal, error)
}

// PrincipalStores holds one store per principal type.
type PrincipalStores map[model.PrincipalType]PrincipalStore

func (s PrincipalStores) For(t model.PrincipalType) (PrincipalStore, error) {
	store, ok := s[t]
	if !ok || store == nil {
		return nil, fmt.Errorf("no store registered for %s", t)
	}
	return store, nil
}

type ClientStore interface {
	LatestByProvider(ctx context.Context, provider model.Provider) (model.OAuthClient, error)
	Find(ctx context.Context, id int64) (model.OAuthClient, error)
	Create(ctx context.Context, c model.OAuthClient) (model.OAuthClient, error)
}

type TokenStore interface {
	CreateTokenPair(ctx context.Context, access model.AccessToken, refresh model.RefreshToken) error
	FindAccessToken(ctx context.Context, id string) (model.AccessToken, error)
	RevokeAccessToken(ctx context.Context, id string) error
	ConsumeRefreshToken(ctx context.Context, id string) (model.RefreshToken, error)
	CleanExpired(ctx context.Context) (int64, error)
}
