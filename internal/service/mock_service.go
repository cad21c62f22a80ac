package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"go-multi-auth/internal/model"
)

type MockClientStore struct {
	mock.Mock
}

func (m *MockClientStore) LatestByProvider(ctx context.Context, provider model.Provider) (model.OAuthClient, error) {
	args := m.Called(ctx, provider)
	return args.Get(0).(model.OAuthClient), args.Error(1)
}

func (m *MockClientStore) Find(ctx context.Context, id int64) (model.OAuthClient, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.OAuthClient), args.Error(1)
}

func (m *MockClientStore) Create(ctx context.Context, c model.OAuthClient) (model.OAuthClient, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(model.OAuthClient), args.Error(1)
}

type MockTokenExchanger struct {
	mock.Mock
}

func (m *MockTokenExchanger) IssueToken(ctx context.Context, creds Credentials, client model.OAuthClient) (model.TokenGrant, error) {
	args := m.Called(ctx, creds, client)
	return args.Get(0).(model.TokenGrant), args.Error(1)
}

func (m *MockTokenExchanger) RefreshToken(ctx context.Context, refreshToken string, client model.OAuthClient) (model.TokenGrant, error) {
	args := m.Called(ctx, refreshToken, client)
	return args.Get(0).(model.TokenGrant), args.Error(1)
}

type MockTokenRevoker struct {
	mock.Mock
}

func (m *MockTokenRevoker) Revoke(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}
