package auth

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"streamvault/internal/apperr"
	"streamvault/internal/httputil"
	"streamvault/internal/models"
	"streamvault/internal/repository"
)

type Handler struct {
	users  *repository.UserRepository
	issuer *TokenIssuer

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

func NewHandler(users *repository.UserRepository, issuer *TokenIssuer) *Handler {
	return &Handler{users: users, issuer: issuer, limiters: make(map[string]*rate.Limiter)}
}

// Router matches spec.md §6: POST /auth/register, POST /auth/login,
// GET /auth/verify, plus logout to exercise the revocation blacklist.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.With(h.rateLimitByIP).Post("/login", h.login)
	r.With(NewMiddleware(h.issuer, h.users).RequireAuth).Get("/verify", h.verify)
	r.Post("/logout", h.logout)
	return r
}

// rateLimitByIP throttles brute-force login attempts per client address —
// 1 attempt/sec with a burst of 5, following the teacher's per-handler
// middleware-via-chi.With idiom.
func (h *Handler) rateLimitByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		h.limiterMu.Lock()
		limiter, ok := h.limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(1, 5)
			h.limiters[ip] = limiter
		}
		h.limiterMu.Unlock()

		if !limiter.Allow() {
			httputil.WriteError(w, http.StatusTooManyRequests, apperr.Transient, "too many login attempts, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "username and password are required")
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, err.Error())
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		httputil.WriteErr(w, nil, apperr.Wrap(apperr.Internal, "hash password", err))
		return
	}

	// The first registered user becomes the household admin (spec.md §4.8).
	count, err := h.users.Count()
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: hash,
		IsAdmin:      count == 0,
	}
	if err := h.users.Create(user); err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		httputil.WriteErr(w, nil, apperr.Wrap(apperr.Internal, "issue token", err))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"user": user, "token": token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, apperr.InvalidInput, "invalid request body")
		return
	}

	user, err := h.users.GetByUsername(req.Username)
	if err != nil {
		httputil.WriteErr(w, nil, err)
		return
	}
	if user == nil || !CheckPassword(user.PasswordHash, req.Password) {
		httputil.WriteError(w, http.StatusUnauthorized, apperr.Unauthorized, "invalid username or password")
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		httputil.WriteErr(w, nil, apperr.Wrap(apperr.Internal, "issue token", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": user, "token": token})
}

// verify lets a client check whether its stored token is still good, e.g.
// after resuming from sleep, without retrying a real request first.
func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httputil.WriteError(w, http.StatusUnauthorized, apperr.Unauthorized, "authentication required")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user": map[string]interface{}{
			"userId":   user.UserID,
			"username": user.Username,
			"isAdmin":  user.IsAdmin,
		},
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	raw := extractToken(r)
	if raw != "" {
		if err := h.users.RevokeToken(HashToken(raw)); err != nil {
			httputil.WriteErr(w, nil, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
