package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go-multi-auth/internal/event"
	"go-multi-auth/internal/metrics"
	"go-multi-auth/internal/model"
)

type ClientResolver interface {
	GetClientByProvider(ctx context.Context, provider model.Provider) (model.OAuthClient, error)
}

type TokenExchanger interface {
	IssueToken(ctx context.Context, creds Credentials, client model.OAuthClient) (model.TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string, client model.OAuthClient) (model.TokenGrant, error)
}

type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string) error
}

// AuthService runs the register, login, refresh, profile and logout flows.
// The same pipeline serves every principal type.
type AuthService struct {
	stores    PrincipalStores
	hasher    PasswordHasher
	verifier  *CredentialVerifier
	clients   ClientResolver
	issuer    TokenExchanger
	revoker   TokenRevoker
	projector *ProfileProjector
	metrics   *metrics.Metrics
	events    event.Bus
}

func NewAuthService(
	stores PrincipalStores,
	hasher PasswordHasher,
	verifier *CredentialVerifier,
	clients ClientResolver,
	issuer TokenExchanger,
	revoker TokenRevoker,
	projector *ProfileProjector,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		stores:    stores,
		hasher:    hasher,
		verifier:  verifier,
		clients:   clients,
		issuer:    issuer,
		revoker:   revoker,
		projector: projector,
		metrics:   m,
	}
}

// SetEvents publishes auth lifecycle events on bus. Nil disables them.
func (s *AuthService) SetEvents(bus event.Bus) {
	s.events = bus
}

// Register creates the principal and then issues its first token pair.
// The two steps are not atomic: if issuing fails the principal still
// exists and can log in later.
func (s *AuthService) Register(ctx context.Context, t model.PrincipalType, req model.RegisterRequest) (model.RegisterResponse, error) {
	resp, err := s.register(ctx, t, req)
	s.metrics.ObserveRegistration(t.String(), err)
	return resp, err
}

func (s *AuthService) register(ctx context.Context, t model.PrincipalType, req model.RegisterRequest) (model.RegisterResponse, error) {
	store, err := s.stores.For(t)
	if err != nil {
		return model.RegisterResponse{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return model.RegisterResponse{}, fmt.Errorf("%w: %w", model.ErrRegistrationFailed, err)
	}

	email := NormalizeEmail(req.Email)
	p, err := store.Create(ctx, model.Principal{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Status:       model.StatusActive,
	})
	if err != nil {
		slog.Warn("registration failed", "type", t.String(), "error", err)
		return model.RegisterResponse{}, fmt.Errorf("%w: %w", model.ErrRegistrationFailed, err)
	}

	grant, err := s.issue(ctx, t, Credentials{Email: email, Password: req.Password})
	if err != nil {
		return model.RegisterResponse{}, err
	}

	profile, err := s.projector.Project(t, p)
	if err != nil {
		return model.RegisterResponse{}, err
	}

	s.publish(event.TypeRegistered, t, p.ID)
	return model.RegisterResponse{
		AccessToken:  grant.AccessToken,
		ExpiresIn:    grant.ExpiresIn,
		RefreshToken: grant.RefreshToken,
		User:         profile,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, t model.PrincipalType, req model.LoginRequest) (model.LoginResponse, error) {
	resp, err := s.login(ctx, t, req)
	s.metrics.ObserveLogin(t.String(), err)
	return resp, err
}

func (s *AuthService) login(ctx context.Context, t model.PrincipalType, req model.LoginRequest) (model.LoginResponse, error) {
	p, err := s.verifier.Verify(ctx, t, req.Email, req.Password, req.RememberMe)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			s.publish(event.TypeLoginFailed, t, 0)
		}
		return model.LoginResponse{}, err
	}

	grant, err := s.issue(ctx, t, Credentials{Email: p.Email, Password: req.Password})
	if err != nil {
		return model.LoginResponse{}, err
	}

	profile, err := s.projector.Project(t, p)
	if err != nil {
		return model.LoginResponse{}, err
	}

	s.publish(event.TypeLoggedIn, t, p.ID)
	return model.LoginResponse{
		AccessToken:  grant.AccessToken,
		ExpiresIn:    grant.ExpiresIn,
		RefreshToken: grant.RefreshToken,
		UserData:     profile,
	}, nil
}

// Refresh exchanges a refresh token with the type's own client and returns
// the grant unchanged.
func (s *AuthService) Refresh(ctx context.Context, t model.PrincipalType, refreshToken string) (model.TokenGrant, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return model.TokenGrant{}, model.ErrUnauthorized
	}

	client, err := s.clients.GetClientByProvider(ctx, t.Provider())
	if err != nil {
		return model.TokenGrant{}, err
	}
	grant, err := s.issuer.RefreshToken(ctx, refreshToken, client)
	if err != nil {
		return model.TokenGrant{}, err
	}
	s.publish(event.TypeTokenRefreshed, t, 0)
	return grant, nil
}

func (s *AuthService) Profile(ctx context.Context, t model.PrincipalType, principalID int64) (model.Profile, error) {
	store, err := s.stores.For(t)
	if err != nil {
		return model.Profile{}, err
	}

	p, err := store.Find(ctx, principalID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Profile{}, model.ErrUnauthorized
	}
	if err != nil {
		return model.Profile{}, err
	}
	return s.projector.Project(t, p)
}

// Logout revokes the presented access token. Repeating it is harmless.
func (s *AuthService) Logout(ctx context.Context, claims model.AccessClaims) error {
	if err := s.revoker.Revoke(ctx, claims.TokenID); err != nil {
		return err
	}
	if t, ok := model.PrincipalTypeForProvider(claims.Provider); ok {
		s.publish(event.TypeLoggedOut, t, claims.PrincipalID)
	}
	return nil
}

func (s *AuthService) issue(ctx context.Context, t model.PrincipalType, creds Credentials) (model.TokenGrant, error) {
	client, err := s.clients.GetClientByProvider(ctx, t.Provider())
	if err != nil {
		return model.TokenGrant{}, err
	}
	return s.issuer.IssueToken(ctx, creds, client)
}

func (s *AuthService) publish(typ event.Type, t model.PrincipalType, principalID int64) {
	if s.events == nil {
		return
	}
	s.events.Publish(event.Event{Type: typ, Principal: t.String(), PrincipalID: principalID})
}
