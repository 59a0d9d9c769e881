package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ProtheticGlitch/Enterra/internal/auth"
	"github.com/ProtheticGlitch/Enterra/internal/domain"
	"github.com/ProtheticGlitch/Enterra/internal/logger"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// identityKey is the context key for the authenticated caller.
const identityKey ctxKey = "identity"

// setIdentity stores the caller in context.
func setIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// callerFrom returns the authenticated caller, or the zero identity for
// anonymous requests. Services decide whether anonymous is acceptable.
func callerFrom(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey).(domain.Identity)
	return id
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the identity in context. If no token is present or it is invalid, the
// request continues anonymously.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokens == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			id := claims.Identity()
			ctx := setIdentity(r.Context(), id)
			ctx = logger.WithUserID(ctx, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
