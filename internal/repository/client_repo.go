package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-multi-auth/internal/model"
)

var clientColumns = []string{"id", "name", "secret", "provider", "revoked", "created_at"}

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// LatestByProvider returns the live client with the largest id for provider.
func (r *ClientRepository) LatestByProvider(ctx context.Context, provider model.Provider) (model.OAuthClient, error) {
	q := NewQuery("oauth_clients", clientColumns, false).
		Where("provider", "=", string(provider)).
		Where("revoked", "=", false).
		OrderBy("id", "desc").
		Take(1)
	return r.first(ctx, q)
}

func (r *ClientRepository) Find(ctx context.Context, id int64) (model.OAuthClient, error) {
	return r.first(ctx, NewQuery("oauth_clients", clientColumns, false).Where("id", "=", id).Take(1))
}

func (r *ClientRepository) Create(ctx context.Context, c model.OAuthClient) (model.OAuthClient, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO oauth_clients (name, secret, provider, revoked)
		 VALUES ($1, $2, $3, false)
		 RETURNING id, created_at`,
		c.Name, c.Secret, string(c.Provider)).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return model.OAuthClient{}, persistenceError("create oauth client", err)
	}
	return c, nil
}

// List returns clients newest first; an empty provider lists all of them.
func (r *ClientRepository) List(ctx context.Context, provider model.Provider) ([]model.OAuthClient, error) {
	q := NewQuery("oauth_clients", clientColumns, false)
	if provider != "" {
		q.Where("provider", "=", string(provider))
	}
	query, args, err := q.OrderBy("id", "desc").Build()
	if err != nil {
		return nil, fmt.Errorf("build client query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceError("list oauth clients", err)
	}
	defer rows.Close()

	clients := make([]model.OAuthClient, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, persistenceError("scan oauth client", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) first(ctx context.Context, q *Query) (model.OAuthClient, error) {
	query, args, err := q.Build()
	if err != nil {
		return model.OAuthClient{}, fmt.Errorf("build client query: %w", err)
	}

	c, err := scanClient(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.OAuthClient{}, model.ErrClientNotFound
	}
	if err != nil {
		return model.OAuthClient{}, persistenceError("find oauth client", err)
	}
	return c, nil
}

func scanClient(row rowScanner) (model.OAuthClient, error) {
	var (
		c        model.OAuthClient
		provider string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Secret, &provider, &c.Revoked, &c.CreatedAt); err != nil {
		return model.OAuthClient{}, err
	}
	c.Provider = model.Provider(provider)
	return c, nil
}
