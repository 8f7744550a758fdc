package httpapi

import (
	"context"
	"net/http"
	"strings"

	"agentrelay/internal/auth"
	"agentrelay/internal/store"
)

type ctxKey string

const ctxUser ctxKey = "user"

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// resolveUser verifies the bearer token and loads its user. Inactive accounts are
// treated as an invalid credential.
func (s server) resolveUser(ctx context.Context, token string) (store.User, error) {
	u, err := auth.Verify(ctx, s.tokens, token, s.store.UserByID)
	if err != nil {
		return store.User{}, err
	}
	if !u.IsActive {
		return store.User{}, auth.ErrTokenInvalid
	}
	return u, nil
}

func (s server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		u, err := s.resolveUser(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired credential")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUser, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalUser attaches the caller when a valid token is present and never rejects.
func (s server) optionalUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := s.resolveUser(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), ctxUser, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must be mounted after requireUser.
func (s server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := userFromCtx(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !u.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userFromCtx(ctx context.Context) (store.User, bool) {
	u, ok := ctx.Value(ctxUser).(store.User)
	return u, ok
}
