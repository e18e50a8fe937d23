package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/studyhall-hq/studyhall/internal/api"
	"github.com/studyhall-hq/studyhall/internal/domain"
)

type contextKey string

// IdentityKey holds the caller identity resolved by APIKeyAuth.
const IdentityKey contextKey = "identity"

var (
	errMissingAuth   = errors.New("missing authorization header")
	errBadAuthFormat = errors.New("invalid authorization format")
)

// AuthValidator resolves an API token to the identity behind it.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (domain.Identity, error)
}

// APIKeyAuth rejects requests that do not carry a valid bearer token and
// stashes the resolved identity in the request context for handlers.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, err.Error())
				return
			}

			identity, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			// Mirror the tenant into a header so the access log can report
			// it without reaching into the context.
			if identity.TenantID != "" {
				r.Header.Set("X-Tenant-ID", identity.TenantID)
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken pulls the API token out of the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuth
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errBadAuthFormat
	}
	return token, nil
}

// GetIdentity returns the identity resolved by APIKeyAuth. The zero value is
// anonymous.
func GetIdentity(ctx context.Context) domain.Identity {
	identity, _ := ctx.Value(IdentityKey).(domain.Identity)
	return identity
}
