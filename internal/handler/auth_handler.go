package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"go-multi-auth/internal/middleware"
	"go-multi-auth/internal/model"
	"go-multi-auth/internal/service"
	"go-multi-auth/pkg/apierror"
)

const RefreshTokenHeader = "RefreshToken"

// AuthHandler serves one principal type's route group.
type AuthHandler struct {
	typ      model.PrincipalType
	service  *service.AuthService
	validate *validator.Validate
}

func NewAuthHandler(typ model.PrincipalType, service *service.AuthService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{typ: typ, service: service, validate: validate}
}

// NewValidator reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (h *AuthHandler) Type() model.PrincipalType {
	return h.typ
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if err := h.decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.service.Register(r.Context(), h.typ, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := h.decode(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.service.Login(r.Context(), h.typ, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh reads the refresh token from the RefreshToken header only; a
// token in the body is ignored.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(RefreshTokenHeader))
	if token == "" {
		writeError(w, apierror.Wrap(model.ErrUnauthorized, "UNAUTHORIZED", msgUnauthorized,
			RefreshTokenHeader+" header is required", http.StatusUnauthorized))
		return
	}

	grant, err := h.service.Refresh(r.Context(), h.typ, token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, grant)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	profile, err := h.service.Profile(r.Context(), h.typ, claims.PrincipalID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), claims); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: msgLoggedOut})
}

func (h *AuthHandler) decode(r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		return apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "Invalid JSON body.", "", http.StatusBadRequest)
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apierror.Wrap(model.ErrValidation, "VALIDATION", msgInvalidData,
				describeValidation(verrs), http.StatusUnprocessableEntity)
		}
		return fmt.Errorf("validate request: %w", err)
	}
	return nil
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}
