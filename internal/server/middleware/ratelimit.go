package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit returns an HTTP middleware that limits requests per client to
// the specified number per minute. Clients are told apart by the API key
// header when present and by IP address otherwise. Throttled requests get a
// 429 in the usual error envelope.
func RateLimit(requestsPerMinute int, keyHeader string) func(http.Handler) http.Handler {
	if keyHeader == "" {
		keyHeader = "X-API-Key"
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if k := r.Header.Get(keyHeader); k != "" {
				return "key:" + k, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeAuthError(w, http.StatusTooManyRequests, "Too many requests")
		}),
	)
}
