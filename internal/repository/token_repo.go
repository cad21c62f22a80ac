package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go-multi-auth/internal/model"
)

type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreateTokenPair stores an access token and its refresh token in one
// transaction, so a failed refresh insert leaves no orphan access token.
func (r *TokenRepository) CreateTokenPair(ctx context.Context, access model.AccessToken, refresh model.RefreshToken) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oauth_access_tokens (id, principal_id, provider, client_id, revoked, created_at, expires_at)
			 VALUES ($1, $2, $3, $4, false, $5, $6)`,
			access.ID, access.PrincipalID, string(access.Provider), access.ClientID, access.CreatedAt, access.ExpiresAt); err != nil {
			return fmt.Errorf("insert access token: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO oauth_refresh_tokens (id, access_token_id, revoked, created_at, expires_at)
			 VALUES ($1, $2, false, $3, $4)`,
			refresh.ID, access.ID, refresh.CreatedAt, refresh.ExpiresAt); err != nil {
			return fmt.Errorf("insert refresh token: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistenceError("store token pair", err)
	}
	return nil
}

func (r *TokenRepository) FindAccessToken(ctx context.Context, id string) (model.AccessToken, error) {
	var (
		t        model.AccessToken
		provider string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, principal_id, provider, client_id, revoked, created_at, expires_at
		 FROM oauth_access_tokens WHERE id = $1`, id).
		Scan(&t.ID, &t.PrincipalID, &provider, &t.ClientID, &t.Revoked, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AccessToken{}, model.ErrNotFound
	}
	if err != nil {
		return model.AccessToken{}, persistenceError("find access token", err)
	}
	t.Provider = model.Provider(provider)
	return t, nil
}

// RevokeAccessToken revokes the token and every refresh token minted with
// it. Revoking an already revoked or unknown token is not an error.
func (r *TokenRepository) RevokeAccessToken(ctx context.Context, id string) error {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE oauth_access_tokens SET revoked = true WHERE id = $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE oauth_refresh_tokens SET revoked = true WHERE access_token_id = $1`, id)
		return err
	})
	if err != nil {
		return persistenceError("revoke access token", err)
	}
	return nil
}

// ConsumeRefreshToken revokes a live refresh token and returns it. The
// conditional update makes concurrent consumers race for a single winner.
func (r *TokenRepository) ConsumeRefreshToken(ctx context.Context, id string) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx,
		`UPDATE oauth_refresh_tokens SET revoked = true
		 WHERE id = $1 AND revoked = false AND expires_at > now()
		 RETURNING id, access_token_id, revoked, created_at, expires_at`, id).
		Scan(&t.ID, &t.AccessTokenID, &t.Revoked, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshToken{}, model.ErrNotFound
	}
	if err != nil {
		return model.RefreshToken{}, persistenceError("consume refresh token", err)
	}
	return t, nil
}

func (r *TokenRepository) CleanExpired(ctx context.Context) (int64, error) {
	var removed int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM oauth_refresh_tokens WHERE expires_at <= now()`)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		removed += n

		res, err = tx.ExecContext(ctx,
			`DELETE FROM oauth_access_tokens a
			 WHERE a.expires_at <= now()
			   AND NOT EXISTS (SELECT 1 FROM oauth_refresh_tokens r WHERE r.access_token_id = a.id)`)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		removed += n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clean expired tokens: %w", err)
	}
	return removed, nil
}
