package middleware

import (
	"net/http"

	"github.com/studyhall-hq/studyhall/internal/api"
)

// MaxBodyBytes rejects requests whose declared Content-Length exceeds limit
// and caps chunked bodies with a MaxBytesReader, so handlers can never read
// more than limit either way. A non-positive limit disables the middleware.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
