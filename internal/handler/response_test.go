package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-multi-auth/internal/model"
	"go-multi-auth/pkg/apierror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unauthorized", model.ErrUnauthorized, http.StatusUnauthorized, msgUnauthorized},
		{"grant failure", fmt.Errorf("exchange: %w", model.ErrGrant), http.StatusUnauthorized, msgUnauthorized},
		{"registration", fmt.Errorf("%w: duplicate", model.ErrRegistrationFailed), http.StatusUnprocessableEntity, msgRegistrationFailed},
		{"validation", model.ErrValidation, http.StatusUnprocessableEntity, msgInvalidData},
		{"missing client", model.ErrClientNotFound, http.StatusInternalServerError, msgServerError},
		{"persistence", fmt.Errorf("store: %w", model.ErrPersistence), http.StatusInternalServerError, msgServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, msgServerError},
		{"api error", apierror.Wrap(model.ErrInvalidInput, "BAD_REQUEST", "Invalid JSON body.", "", http.StatusBadRequest), http.StatusBadRequest, "Invalid JSON body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body model.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.status, body.Error)
			assert.Equal(t, tt.message, body.Message)
		})
	}
}

func TestWriteErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("%w: pq: duplicate key value violates unique constraint", model.ErrRegistrationFailed))

	assert.NotContains(t, rec.Body.String(), "duplicate key")
}
