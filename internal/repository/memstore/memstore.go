// Package memstore holds map backed stores with the same contracts as the
// Postgres repositories, for tests and local tooling.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-multi-auth/internal/model"
)

// PrincipalStore is a map backed principal store. Set FailCreate to make every Create fail with that error.
type PrincipalStore struct {
	mu         sync.RWMutex
	typ        model.PrincipalType
	nextID     int64
	rows       map[int64]model.Principal
	FailCreate error
}

func NewPrincipalStore(typ model.PrincipalType) *PrincipalStore {
	return &PrincipalStore{typ: typ, rows: make(map[int64]model.Principal)}
}

func (s *PrincipalStore) Create(_ context.Context, p model.Principal) (model.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreate != nil {
		return model.Principal{}, persistenceError("create "+s.typ.String(), s.FailCreate)
	}
	for _, existing := range s.rows {
		if strings.EqualFold(existing.Email, p.Email) {
			return model.Principal{}, persistenceError("create "+s.typ.String(),
				fmt.Errorf("duplicate email %q", p.Email))
		}
	}

	s.nextID++
	now := time.Now().UTC()
	p.ID = s.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	s.rows[p.ID] = p
	return p, nil
}

func (s *PrincipalStore) Find(ctx context.Context, id int64) (model.Principal, error) {
	return s.FindByField(ctx, "id", id)
}

func (s *PrincipalStore) FindByField(_ context.Context, field string, value any) (model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		p := s.rows[id]
		if p.Trashed() {
			continue
		}
		var match bool
		switch field {
		case "id":
			match = fmt.Sprint(p.ID) == fmt.Sprint(value)
		case "email":
			match = p.Email == fmt.Sprint(value)
		case "name":
			match = p.Name == fmt.Sprint(value)
		default:
			return model.Principal{}, fmt.Errorf("unknown column %q on %s", field, s.typ.Table())
		}
		if match {
			return p, nil
		}
	}
	return model.Principal{}, model.ErrNotFound
}

// Delete soft-deletes the record.
func (s *PrincipalStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.rows[id]
	if !ok || p.Trashed() {
		return model.ErrNotFound
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	s.rows[id] = p
	return nil
}

type ClientStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []model.OAuthClient
}

func NewClientStore() *ClientStore {
	return &ClientStore{}
}

func (s *ClientStore) Create(_ context.Context, c model.OAuthClient) (model.OAuthClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now().UTC()
	s.rows = append(s.rows, c)
	return c, nil
}

func (s *ClientStore) Find(_ context.Context, id int64) (model.OAuthClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.rows {
		if c.ID == id {
			return c, nil
		}
	}
	return model.OAuthClient{}, model.ErrClientNotFound
}

func (s *ClientStore) LatestByProvider(_ context.Context, provider model.Provider) (model.OAuthClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  model.OAuthClient
		found bool
	)
	for _, c := range s.rows {
		if c.Provider != provider || c.Revoked {
			continue
		}
		if !found || c.ID > best.ID {
			best, found = c, true
		}
	}
	if !found {
		return model.OAuthClient{}, model.ErrClientNotFound
	}
	return best, nil
}

type TokenStore struct {
	mu      sync.Mutex
	access  map[string]model.AccessToken
	refresh map[string]model.RefreshToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		access:  make(map[string]model.AccessToken),
		refresh: make(map[string]model.RefreshToken),
	}
}

func (s *TokenStore) CreateTokenPair(_ context.Context, access model.AccessToken, refresh model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	refresh.AccessTokenID = access.ID
	s.access[access.ID] = access
	s.refresh[refresh.ID] = refresh
	return nil
}

func (s *TokenStore) FindAccessToken(_ context.Context, id string) (model.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.access[id]
	if !ok {
		return model.AccessToken{}, model.ErrNotFound
	}
	return t, nil
}

func (s *TokenStore) RevokeAccessToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.access[id]; ok {
		t.Revoked = true
		s.access[id] = t
	}
	for k, rt := range s.refresh {
		if rt.AccessTokenID == id {
			rt.Revoked = true
			s.refresh[k] = rt
		}
	}
	return nil
}

func (s *TokenStore) ConsumeRefreshToken(_ context.Context, id string) (model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refresh[id]
	if !ok || t.Revoked || !t.ExpiresAt.After(time.Now()) {
		return model.RefreshToken{}, model.ErrNotFound
	}
	t.Revoked = true
	s.refresh[id] = t
	return t, nil
}

func (s *TokenStore) CleanExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for k, rt := range s.refresh {
		if !rt.ExpiresAt.After(now) {
			delete(s.refresh, k)
			removed++
		}
	}
	for k, at := range s.access {
		if at.ExpiresAt.After(now) {
			continue
		}
		referenced := false
		for _, rt := range s.refresh {
			if rt.AccessTokenID == k {
				referenced = true
				break
			}
		}
		if !referenced {
			delete(s.access, k)
			removed++
		}
	}
	return removed, nil
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
}
