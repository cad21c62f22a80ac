package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-multi-auth/internal/model"
	"go-multi-auth/internal/service"
)

// OAuthHandler is the RFC 6749 token endpoint for the password and
// refresh_token grants.
type OAuthHandler struct {
	server *service.TokenServer
}

func NewOAuthHandler(server *service.TokenServer) *OAuthHandler {
	return &OAuthHandler{server: server}
}

func (h *OAuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", "The request body is not a valid form.")
		return
	}

	clientID, clientSecret, basic := r.BasicAuth()
	if !basic {
		clientID = r.PostForm.Get("client_id")
		clientSecret = r.PostForm.Get("client_secret")
	}
	if strings.TrimSpace(clientID) == "" {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", `The request is missing the "client_id" parameter.`)
		return
	}

	var (
		grant model.TokenGrant
		err   error
	)
	switch grantType := r.PostForm.Get("grant_type"); grantType {
	case service.GrantPassword:
		username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
		if username == "" || password == "" {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", `The request is missing the "username" or "password" parameter.`)
			return
		}
		grant, err = h.server.PasswordGrant(r.Context(), clientID, clientSecret, username, password)
	case service.GrantRefreshToken:
		refresh := r.PostForm.Get("refresh_token")
		if refresh == "" {
			writeOAuthError(w, http.StatusBadRequest, "invalid_request", `The request is missing the "refresh_token" parameter.`)
			return
		}
		grant, err = h.server.RefreshGrant(r.Context(), clientID, clientSecret, refresh)
	case "":
		writeOAuthError(w, http.StatusBadRequest, "invalid_request", `The request is missing the "grant_type" parameter.`)
		return
	default:
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type", "The authorization grant type is not supported.")
		return
	}

	if err != nil {
		h.handleGrantError(w, err, basic)
		return
	}

	noStore(w)
	writeJSON(w, http.StatusOK, grant)
}

func (h *OAuthHandler) handleGrantError(w http.ResponseWriter, err error, basic bool) {
	switch {
	case errors.Is(err, model.ErrInvalidClient):
		if basic {
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
		}
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "Client authentication failed.")
	case errors.Is(err, model.ErrInvalidGrant):
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant", "The provided authorization grant is invalid, expired or revoked.")
	default:
		slog.Error("token endpoint failed", "error", err)
		writeOAuthError(w, http.StatusInternalServerError, "server_error", "The authorization server encountered an unexpected condition.")
	}
}

func writeOAuthError(w http.ResponseWriter, status int, code string, description string) {
	noStore(w)
	writeJSON(w, status, model.OAuthErrorResponse{Error: code, ErrorDescription: description})
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
