//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-multi-auth/internal/cache"
	"go-multi-auth/internal/config"
	"go-multi-auth/internal/database"
	"go-multi-auth/internal/handler"
	"go-multi-auth/internal/metrics"
	"go-multi-auth/internal/middleware"
	"go-multi-auth/internal/model"
	"go-multi-auth/internal/repository"
	"go-multi-auth/internal/router"
	"go-multi-auth/internal/service"
)

type stack struct {
	server *httptest.Server
	db     *database.DB
	tokens *repository.TokenRepository
}

type lateHandler struct {
	h http.Handler
}

func (l *lateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l.h.ServeHTTP(w, r)
}

// newStack serves the API on a fresh schema in TEST_DATABASE_URL.
func newStack(t *testing.T) *stack {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Options{URL: url, MaxConns: 5, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx, `TRUNCATE oauth_refresh_tokens, oauth_access_tokens, oauth_clients, users, employees, managers RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	late := &lateHandler{}
	server := httptest.NewServer(late)
	t.Cleanup(server.Close)

	stores := service.PrincipalStores{}
	for _, typ := range model.PrincipalTypes() {
		stores[typ] = repository.NewPrincipalRepository(db.SQL, typ)
	}
	clientRepo := repository.NewClientRepository(db.SQL)
	tokenRepo := repository.NewTokenRepository(db.SQL)
	c := cache.NewMemory(time.Minute)
	m := metrics.New()
	require.NoError(t, m.RegisterPool(db.Pool))

	hasher := service.NewBcryptHasher(bcrypt.MinCost)
	verifier := service.NewCredentialVerifier(stores, hasher)
	registry := service.NewClientRegistry(clientRepo, c, time.Minute)
	require.NoError(t, registry.EnsureClients(ctx, true, model.ProviderUsers, model.ProviderEmployees, model.ProviderManagers))

	tokenServer := service.NewTokenServer(clientRepo, stores, verifier, tokenRepo,
		service.NewTokenSigner("test-secret"), c,
		service.TokenServerConfig{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})
	authService := service.NewAuthService(stores, hasher, verifier, registry,
		service.NewTokenIssuer(server.URL, 5*time.Second, m), tokenServer,
		service.NewProfileProjector(service.RolePolicy{Role: "admin", Abilities: []model.Ability{{Action: "manage", Subject: "all"}}}), m)

	validate := handler.NewValidator()
	handlers := make([]*handler.AuthHandler, 0, 3)
	for _, typ := range model.PrincipalTypes() {
		handlers = append(handlers, handler.NewAuthHandler(typ, authService, validate))
	}

	cfg := &config.Config{
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
	}
	late.h = router.New(cfg, m, middleware.NewAuthMiddleware(tokenServer), handlers,
		handler.NewOAuthHandler(tokenServer), handler.NewHealthHandler(db))

	return &stack{server: server, db: db, tokens: tokenRepo}
}

func postJSON(t *testing.T, url string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doRequest(t, req)
}

func doAuthRequest(t *testing.T, method string, url string, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return doRequest(t, req)
}

func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
