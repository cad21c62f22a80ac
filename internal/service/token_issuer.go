package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"go-multi-auth/internal/metrics"
	"go-multi-auth/internal/model"
)

type Credentials struct {
	Email    string
	Password string
}

// TokenIssuer performs grant exchanges against the token endpoint at
// {baseURL}/oauth/token.
type TokenIssuer struct {
	tokenURL string
	client   *http.Client
	metrics  *metrics.Metrics
}

func NewTokenIssuer(baseURL string, timeout time.Duration, m *metrics.Metrics) *TokenIssuer {
	return &TokenIssuer{
		tokenURL: strings.TrimRight(baseURL, "/") + "/oauth/token",
		client:   &http.Client{Timeout: timeout},
		metrics:  m,
	}
}

// IssueToken runs a password grant. Exchanges are never retried: a
// timed out request may already have been honoured by the endpoint.
func (i *TokenIssuer) IssueToken(ctx context.Context, creds Credentials, client model.OAuthClient) (model.TokenGrant, error) {
	start := time.Now()
	tok, err := i.config(client).PasswordCredentialsToken(i.context(ctx), creds.Email, creds.Password)
	grant, err := i.result(client, GrantPassword, tok, err)
	i.metrics.ObserveGrant(string(client.Provider), GrantPassword, err, time.Since(start))
	return grant, err
}

func (i *TokenIssuer) RefreshToken(ctx context.Context, refreshToken string, client model.OAuthClient) (model.TokenGrant, error) {
	start := time.Now()
	src := i.config(client).TokenSource(i.context(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	grant, err := i.result(client, GrantRefreshToken, tok, err)
	i.metrics.ObserveGrant(string(client.Provider), GrantRefreshToken, err, time.Since(start))
	return grant, err
}

func (i *TokenIssuer) config(client model.OAuthClient) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     strconv.FormatInt(client.ID, 10),
		ClientSecret: client.Secret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  i.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func (i *TokenIssuer) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, i.client)
}

func (i *TokenIssuer) result(client model.OAuthClient, grant string, tok *oauth2.Token, err error) (model.TokenGrant, error) {
	if err != nil {
		attrs := []any{"provider", string(client.Provider), "grant", grant, "client_id", client.ID}
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			if re.Response != nil {
				attrs = append(attrs, "status", re.Response.StatusCode)
			}
			attrs = append(attrs, "error_code", re.ErrorCode)
		} else {
			attrs = append(attrs, "error", err)
		}
		slog.Warn("token exchange failed", attrs...)
		return model.TokenGrant{}, model.ErrGrant
	}

	if tok == nil || tok.AccessToken == "" || tok.RefreshToken == "" {
		slog.Warn("token exchange returned an incomplete grant", "provider", string(client.Provider), "grant", grant)
		return model.TokenGrant{}, model.ErrGrant
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return model.TokenGrant{
		TokenType:    tokenType,
		ExpiresIn:    expiresIn(tok),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}, nil
}

// expiresIn prefers the endpoint's own expires_in over a value derived
// from the computed expiry.
func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int64(math.Round(time.Until(tok.Expiry).Seconds()))
}
