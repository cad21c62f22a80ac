package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go-multi-auth/internal/model"
)

// Timeout bounds handler run time. Handlers behind it must set their own
// Content-Type; the JSON default only stands for the timeout body.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body, _ := json.Marshal(model.ErrorResponse{
		Error:   http.StatusServiceUnavailable,
		Message: "Request timed out.",
	})

	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, timeout, string(body))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			th.ServeHTTP(w, r)
		})
	}
}
