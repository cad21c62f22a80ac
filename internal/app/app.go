package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-multi-auth/internal/cache"
	"go-multi-auth/internal/config"
	"go-multi-auth/internal/database"
	"go-multi-auth/internal/event"
	"go-multi-auth/internal/handler"
	"go-multi-auth/internal/metrics"
	"go-multi-auth/internal/middleware"
	"go-multi-auth/internal/model"
	"go-multi-auth/internal/repository"
	"go-multi-auth/internal/router"
	"go-multi-auth/internal/service"
)

const tokenCleanupInterval = time.Hour

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, database.Options{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "go-multi-auth",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}
	slog.Info("database ready")

	store, err := newCache(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	m := metrics.New()
	if err := m.RegisterPool(db.Pool); err != nil {
		_ = store.Close()
		db.Close()
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}

	stores := service.PrincipalStores{}
	for _, t := range model.PrincipalTypes() {
		stores[t] = repository.NewPrincipalRepository(db.SQL, t)
	}
	clientRepo := repository.NewClientRepository(db.SQL)
	tokenRepo := repository.NewTokenRepository(db.SQL)

	hasher := service.NewBcryptHasher(cfg.BcryptCost)
	verifier := service.NewCredentialVerifier(stores, hasher)
	clients := service.NewClientRegistry(clientRepo, store, cfg.ClientCacheTTL)

	providers := make([]model.Provider, 0, len(stores))
	for _, t := range model.PrincipalTypes() {
		providers = append(providers, t.Provider())
	}
	if err := clients.EnsureClients(ctx, cfg.OAuthAutoCreateClients, providers...); err != nil {
		_ = store.Close()
		db.Close()
		return nil, fmt.Errorf("failed to resolve oauth clients: %w", err)
	}

	tokenServer := service.NewTokenServer(
		clientRepo,
		stores,
		verifier,
		tokenRepo,
		service.NewTokenSigner(cfg.JWTSecret),
		store,
		service.TokenServerConfig{AccessTTL: cfg.AccessTokenTTL, RefreshTTL: cfg.RefreshTokenTTL},
	)
	issuer := service.NewTokenIssuer(cfg.OAuthBaseURL, cfg.OAuthTimeout, m)
	projector := service.NewProfileProjector(service.RolePolicy{
		Role:      cfg.ManagerDefaultRole,
		Abilities: cfg.ManagerDefaultAbilities,
	})

	authService := service.NewAuthService(stores, hasher, verifier, clients, issuer, tokenServer, projector, m)
	bus := event.NewBus()
	authService.SetEvents(bus)

	validate := handler.NewValidator()
	authHandlers := make([]*handler.AuthHandler, 0, len(stores))
	for _, t := range model.PrincipalTypes() {
		authHandlers = append(authHandlers, handler.NewAuthHandler(t, authService, validate))
	}

	appRouter := router.New(
		cfg,
		m,
		middleware.NewAuthMiddleware(tokenServer),
		authHandlers,
		handler.NewOAuthHandler(tokenServer),
		handler.NewHealthHandler(db),
	)

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	go event.Audit(backgroundCtx, bus)
	tokenServer.StartCleanup(backgroundCtx, tokenCleanupInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			func() {
				backgroundCancel()
			},
			func() {
				if err := store.Close(); err != nil {
					slog.Warn("cache close failed", "error", err)
				}
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	switch cfg.CacheDriver {
	case config.CacheDriverRedis:
		slog.Info("connecting to Redis")
		r, err := cache.NewRedis(ctx, cfg.RedisURL, "multiauth:")
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return cache.NewMemory(cfg.ClientCacheTTL), nil
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Drain in-flight requests before the pool and cache go away.
	err := a.server.Shutdown(ctx)

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
