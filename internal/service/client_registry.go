package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"go-multi-auth/internal/cache"
	"go-multi-auth/internal/model"
)

// ClientRegistry resolves the OAuth client that issues tokens for a
// provider. The newest live client wins. Only client ids are cached;
// secrets are always read from the store.
type ClientRegistry struct {
	store ClientStore
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewClientRegistry(store ClientStore, c cache.Cache, ttl time.Duration) *ClientRegistry {
	return &ClientRegistry{store: store, cache: c, ttl: ttl}
}

func (r *ClientRegistry) GetClientByProvider(ctx context.Context, provider model.Provider) (model.OAuthClient, error) {
	if !provider.Valid() {
		return model.OAuthClient{}, fmt.Errorf("%w: unknown provider %q", model.ErrClientNotFound, provider)
	}

	key := clientCacheKey(provider)
	if c, ok := r.fromCache(ctx, key, provider); ok {
		return c, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		c, err := r.store.LatestByProvider(ctx, provider)
		if err != nil {
			return model.OAuthClient{}, err
		}
		r.toCache(ctx, key, c.ID)
		return c, nil
	})
	if errors.Is(err, model.ErrClientNotFound) {
		slog.Error("no oauth client registered for provider", "provider", string(provider))
		return model.OAuthClient{}, err
	}
	if err != nil {
		return model.OAuthClient{}, fmt.Errorf("resolve oauth client for %s: %w", provider, err)
	}
	return v.(model.OAuthClient), nil
}

// CreateClient registers a new password grant client. It becomes the
// provider's active client immediately.
func (r *ClientRegistry) CreateClient(ctx context.Context, provider model.Provider, name string) (model.OAuthClient, error) {
	if !provider.Valid() {
		return model.OAuthClient{}, fmt.Errorf("%w: unknown provider %q", model.ErrInvalidInput, provider)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultClientName(provider)
	}

	secret, err := newClientSecret()
	if err != nil {
		return model.OAuthClient{}, err
	}

	c, err := r.store.Create(ctx, model.OAuthClient{Name: name, Secret: secret, Provider: provider})
	if err != nil {
		return model.OAuthClient{}, err
	}
	r.Invalidate(ctx, provider)
	return c, nil
}

func (r *ClientRegistry) Invalidate(ctx context.Context, provider model.Provider) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, clientCacheKey(provider)); err != nil {
		slog.Warn("failed to invalidate client cache", "provider", string(provider), "error", err)
	}
}

// EnsureClients checks every provider has a client. Missing clients are
// created when autoCreate is set, otherwise the first gap is returned.
func (r *ClientRegistry) EnsureClients(ctx context.Context, autoCreate bool, providers ...model.Provider) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range providers {
		g.Go(func() error {
			_, err := r.store.LatestByProvider(gctx, p)
			if err == nil {
				return nil
			}
			if !errors.Is(err, model.ErrClientNotFound) {
				return fmt.Errorf("check oauth client for %s: %w", p, err)
			}
			if !autoCreate {
				slog.Error("no oauth client registered for provider", "provider", string(p))
				return fmt.Errorf("provider %s: %w", p, err)
			}

			c, err := r.CreateClient(gctx, p, "")
			if err != nil {
				return fmt.Errorf("create oauth client for %s: %w", p, err)
			}
			slog.Info("created oauth client", "provider", string(p), "client_id", c.ID)
			return nil
		})
	}
	return g.Wait()
}

// fromCache resolves a cached client id through the store. A stale id is
// dropped so the caller falls back to the provider lookup.
func (r *ClientRegistry) fromCache(ctx context.Context, key string, provider model.Provider) (model.OAuthClient, bool) {
	if r.cache == nil {
		return model.OAuthClient{}, false
	}
	b, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Warn("client cache read failed", "key", key, "error", err)
		}
		return model.OAuthClient{}, false
	}

	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		r.Invalidate(ctx, provider)
		return model.OAuthClient{}, false
	}

	c, err := r.store.Find(ctx, id)
	if err != nil || c.Revoked || c.Provider != provider {
		if err != nil && !errors.Is(err, model.ErrClientNotFound) {
			slog.Warn("cached oauth client lookup failed", "client_id", id, "error", err)
		}
		r.Invalidate(ctx, provider)
		return model.OAuthClient{}, false
	}
	return c, true
}

func (r *ClientRegistry) toCache(ctx context.Context, key string, id int64) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, key, []byte(strconv.FormatInt(id, 10)), r.ttl); err != nil {
		slog.Warn("client cache write failed", "key", key, "error", err)
	}
}

func clientCacheKey(p model.Provider) string {
	return "oauth_client:" + string(p)
}

func defaultClientName(p model.Provider) string {
	s := string(p)
	return strings.ToUpper(s[:1]) + s[1:] + " Password Grant Client"
}
