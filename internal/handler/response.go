package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-multi-auth/internal/model"
	"go-multi-auth/pkg/apierror"
)

const (
	msgUnauthorized       = "Unauthorized."
	msgRegistrationFailed = "User registration failed!"
	msgLoggedOut          = "Successfully logged out."
	msgInvalidData        = "The given data was invalid."
	msgServerError        = "Server error."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error": status, "message": ...}. Credential,
// token and grant failures all collapse to the same unauthorized body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := model.ErrorResponse{Message: msgServerError}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrValidation) {
		status = http.StatusUnprocessableEntity
		body.Message = msgInvalidData
	} else if errors.Is(err, model.ErrRegistrationFailed) {
		status = http.StatusUnprocessableEntity
		body.Message = msgRegistrationFailed
	} else if errors.Is(err, model.ErrUnauthorized) || errors.Is(err, model.ErrGrant) {
		status = http.StatusUnauthorized
		body.Message = msgUnauthorized
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Message = "Invalid input."
	} else if errors.Is(err, model.ErrNotFound) {
		status = http.StatusNotFound
		body.Message = "Not found."
	} else if errors.Is(err, model.ErrClientNotFound) {
		slog.Error("oauth client missing", "error", err.Error())
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	body.Error = status
	writeJSON(w, status, body)
}
