package apierror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(cause, "VALIDATION", "The given data was invalid.", "email: email", http.StatusUnprocessableEntity)

	assert.Equal(t, "VALIDATION: The given data was invalid. (email: email)", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NOT_FOUND: missing", New("NOT_FOUND", "missing", "", http.StatusNotFound).Error())

	var nilErr *APIError
	assert.Equal(t, "", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}
