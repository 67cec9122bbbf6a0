package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"gatekeeper.dev/internal/authz"
	"gatekeeper.dev/internal/token"
)

const authHeader = "Authorization"

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

// withAuth authenticates every non-public request: the bearer token is
// verified and the account it was issued for is resolved, so handlers can
// rely on the user id in the context.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.users == nil || a.tokens == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, ok := a.tokens.ExtractFromHeader(r.Header.Get(authHeader))
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		user, err := a.users.Authenticate(r.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrTokenExpired):
				writeError(w, r, http.StatusUnauthorized, "token expired")
			case errors.Is(err, token.ErrInvalidToken):
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			case errors.Is(err, authz.ErrNotFound):
				writeError(w, r, http.StatusUnauthorized, "unknown account")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := authz.ContextWithUserID(r.Context(), user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUserID returns the authenticated user or fails the request.
func currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := authz.UserIDFromContext(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
