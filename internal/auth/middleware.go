package auth

import (
	"context"
	"net/http"
	"strings"

	"streamvault/internal/httputil"
	"streamvault/internal/repository"

	"streamvault/internal/apperr"
)

type contextKey string

const ContextUser contextKey = "user"

// ContextUserData is the authenticated principal attached to a request's
// context by Middleware.RequireAuth.
type ContextUserData struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

type Middleware struct {
	issuer *TokenIssuer
	users  *repository.UserRepository
}

func NewMiddleware(issuer *TokenIssuer, users *repository.UserRepository) *Middleware {
	return &Middleware{issuer: issuer, users: users}
}

// RequireAuth verifies the bearer token's signature/expiry, rejects it if
// its hash appears in the revoked_tokens blacklist, then loads the current
// is_admin flag fresh from the users table — never trusting a claim in the
// token itself, so a promotion or demotion takes effect immediately.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			httputil.WriteError(w, http.StatusUnauthorized, apperr.Unauthorized, "authentication required")
			return
		}

		// A missing token is 401 (authenticate); a present-but-unusable one
		// is 403 (forbidden) per spec.md §4.6.
		claims, err := m.issuer.Verify(raw)
		if err != nil {
			httputil.WriteError(w, http.StatusForbidden, apperr.Forbidden, "invalid or expired token")
			return
		}

		revoked, err := m.users.IsTokenRevoked(HashToken(raw))
		if err != nil {
			httputil.WriteErr(w, nil, err)
			return
		}
		if revoked {
			httputil.WriteError(w, http.StatusForbidden, apperr.Forbidden, "token has been revoked")
			return
		}

		user, err := m.users.GetByID(claims.UserID)
		if err != nil {
			httputil.WriteError(w, http.StatusForbidden, apperr.Forbidden, "user no longer exists")
			return
		}

		ctx := context.WithValue(r.Context(), ContextUser, ContextUserData{
			UserID:   user.ID,
			Username: user.Username,
			IsAdmin:  user.IsAdmin,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			httputil.WriteError(w, http.StatusForbidden, apperr.Forbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserFromContext(ctx context.Context) *ContextUserData {
	if v, ok := ctx.Value(ContextUser).(ContextUserData); ok {
		return &v
	}
	return nil
}

// extractToken reads the bearer token from the Authorization header, or
// from a `token` query parameter so streaming/HLS clients that cannot set
// custom headers (e.g. <video> tags, HLS segment fetches) can still
// authenticate.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	return ""
}
