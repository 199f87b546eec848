package authhandler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/apperror"
	"appraisal/internal/domain/auth"
	"appraisal/internal/domain/directory"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

type Handler struct {
	Directory directory.Directory
	Perms     middleware.PermissionStore
	Secret    string
	TokenTTL  time.Duration
}

func NewHandler(dir directory.Directory, perms middleware.PermissionStore, secret string, ttl time.Duration) *Handler {
	return &Handler{Directory: dir, Perms: perms, Secret: secret, TokenTTL: ttl}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", h.HandleMe)
		r.Post("/refresh", h.HandleRefresh)
	})
}

type meResponse struct {
	UserID      string              `json:"userId"`
	Role        string              `json:"role"`
	Permissions []string            `json:"permissions"`
	Profile     *directory.Employee `json:"profile,omitempty"`
}

// HandleMe describes the caller. Users without a directory record (seeded
// HR accounts, service tokens) get no profile.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	perms := []string{}
	for _, perm := range auth.DefaultPermissions {
		allowed, err := h.Perms.HasPermission(r.Context(), user.RoleName, perm)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "rbac_error", "permission check failed", requestID)
			return
		}
		if allowed {
			perms = append(perms, perm)
		}
	}

	resp := meResponse{UserID: user.UserID, Role: user.RoleName, Permissions: perms}
	if h.Directory != nil {
		emp, err := h.Directory.Lookup(r.Context(), user.UserID)
		switch {
		case err == nil:
			resp.Profile = &emp
		case !errors.Is(err, directory.ErrEmployeeNotFound):
			api.FailError(w, apperror.Upstream("employee directory unavailable", err), requestID)
			return
		}
	}
	api.Success(w, resp, requestID)
}

// HandleRefresh reissues a token for the authenticated caller with a fresh
// expiry. Role changes are not picked up here; they need a new token.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	token, err := auth.GenerateToken(h.Secret, auth.Claims{UserID: user.UserID, RoleName: user.RoleName}, ttl)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestID)
		return
	}
	api.Success(w, map[string]any{
		"token":     token,
		"expiresAt": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	}, requestID)
}
