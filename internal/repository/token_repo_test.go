package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-multi-auth/internal/model"
)

func TestTokenRepository_ConsumeRefreshToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE oauth_refresh_tokens SET revoked = true")).
		WithArgs("rt-hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "access_token_id", "revoked", "created_at", "expires_at"}).
			AddRow("rt-hash", "at-1", true, now, now.Add(time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE oauth_refresh_tokens SET revoked = true")).
		WithArgs("rt-hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "access_token_id", "revoked", "created_at", "expires_at"}))

	rt, err := repo.ConsumeRefreshToken(context.Background(), "rt-hash")
	require.NoError(t, err)
	assert.Equal(t, "at-1", rt.AccessTokenID)

	_, err = repo.ConsumeRefreshToken(context.Background(), "rt-hash")
	assert.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_RevokeAccessToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oauth_access_tokens SET revoked = true WHERE id = $1")).
		WithArgs("at-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oauth_refresh_tokens SET revoked = true WHERE access_token_id = $1")).
		WithArgs("at-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RevokeAccessToken(context.Background(), "at-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_RevokeRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oauth_access_tokens")).
		WithArgs("at-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE oauth_refresh_tokens")).
		WithArgs("at-1").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = repo.RevokeAccessToken(context.Background(), "at-1")
	assert.ErrorIs(t, err, model.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_CleanExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM oauth_refresh_tokens WHERE expires_at <= now()")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM oauth_access_tokens a")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := NewTokenRepository(db).CleanExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newTokenPair(now time.Time) (model.AccessToken, model.RefreshToken) {
	access := model.AccessToken{
		ID:          "at-1",
		PrincipalID: 7,
		Provider:    model.ProviderEmployees,
		ClientID:    2,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}
	refresh := model.RefreshToken{ID: "rt-hash", AccessTokenID: "at-1", CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour)}
	return access, refresh
}

func TestTokenRepository_CreateTokenPair(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepository(db)

	now := time.Now()
	access, refresh := newTokenPair(now)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO oauth_access_tokens")).
		WithArgs("at-1", int64(7), "employees", int64(2), now, now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO oauth_refresh_tokens")).
		WithArgs("rt-hash", "at-1", now, now.Add(2*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateTokenPair(context.Background(), access, refresh))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepository_CreateTokenPairRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepository(db)

	access, refresh := newTokenPair(time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO oauth_access_tokens")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO oauth_refresh_tokens")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err = repo.CreateTokenPair(context.Background(), access, refresh)
	assert.ErrorIs(t, err, model.ErrPersistence)
	require.NoError(t, mock.ExpectationsWereMet())
}
