package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-multi-auth/internal/model"
)

func tokenEndpoint(t *testing.T, check func(form url.Values), status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		if check != nil {
			check(r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var testClient = model.OAuthClient{ID: 2, Secret: "client-secret", Provider: model.ProviderUsers}

func TestTokenIssuer_IssueToken(t *testing.T) {
	srv := tokenEndpoint(t, func(form url.Values) {
		assert.Equal(t, "password", form.Get("grant_type"))
		assert.Equal(t, "2", form.Get("client_id"))
		assert.Equal(t, "client-secret", form.Get("client_secret"))
		assert.Equal(t, "jane@x.com", form.Get("username"))
		assert.Equal(t, "secret123", form.Get("password"))
	}, http.StatusOK, `{"token_type":"Bearer","expires_in":1296000,"access_token":"at","refresh_token":"rt"}`)

	issuer := NewTokenIssuer(srv.URL+"/", time.Second, nil)
	grant, err := issuer.IssueToken(context.Background(), Credentials{Email: "jane@x.com", Password: "secret123"}, testClient)
	require.NoError(t, err)
	assert.Equal(t, model.TokenGrant{TokenType: "Bearer", ExpiresIn: 1296000, AccessToken: "at", RefreshToken: "rt"}, grant)
}

func TestTokenIssuer_RefreshToken(t *testing.T) {
	srv := tokenEndpoint(t, func(form url.Values) {
		assert.Equal(t, "refresh_token", form.Get("grant_type"))
		assert.Equal(t, "old-rt", form.Get("refresh_token"))
		assert.Equal(t, "2", form.Get("client_id"))
		assert.Empty(t, form.Get("password"))
	}, http.StatusOK, `{"token_type":"Bearer","expires_in":60,"access_token":"at2","refresh_token":"rt2"}`)

	grant, err := NewTokenIssuer(srv.URL, time.Second, nil).RefreshToken(context.Background(), "old-rt", testClient)
	require.NoError(t, err)
	assert.Equal(t, "at2", grant.AccessToken)
	assert.Equal(t, "rt2", grant.RefreshToken)
	assert.Equal(t, int64(60), grant.ExpiresIn)
}

func TestTokenIssuer_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"rejected", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"The user credentials were incorrect."}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"malformed", http.StatusOK, `{not json`},
		{"missing refresh token", http.StatusOK, `{"token_type":"Bearer","expires_in":60,"access_token":"at"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := tokenEndpoint(t, nil, tc.status, tc.body)
			_, err := NewTokenIssuer(srv.URL, time.Second, nil).IssueToken(context.Background(), Credentials{Email: "a@b.c", Password: "x"}, testClient)
			require.ErrorIs(t, err, model.ErrGrant)
			assert.NotContains(t, err.Error(), "invalid_grant")
		})
	}
}

func TestTokenIssuer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewTokenIssuer(addr, 200*time.Millisecond, nil).IssueToken(context.Background(), Credentials{Email: "a@b.c", Password: "x"}, testClient)
	assert.ErrorIs(t, err, model.ErrGrant)
}
