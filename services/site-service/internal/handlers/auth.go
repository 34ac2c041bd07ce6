package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/httpx"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

type AuthHandler struct {
	admins       AdminStore
	issuer       *auth.Issuer
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(admins AdminStore, issuer *auth.Issuer, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{admins: admins, issuer: issuer, secureCookie: secureCookie, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Login answers the same 401 for unknown users and wrong passwords.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadJSON(w)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	admin, err := h.admins.ByUsername(r.Context(), req.Username)
	if errors.Is(err, model.ErrNotFound) {
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err, "", "Login failed")
		return
	}
	if err := auth.VerifyPassword(admin.PasswordHash, req.Password); err != nil {
		h.logger.Info("admin login rejected", "username", admin.Username)
		httpx.WriteError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, expires, err := h.issuer.Sign(admin.ID, admin.Username, admin.Role)
	if err != nil {
		writeError(w, r, h.logger, err, "", "Login failed")
		return
	}
	if err := h.admins.UpdateLastLogin(r.Context(), admin.ID); err != nil {
		h.logger.Warn("update last_login failed", "err", err, "admin_id", admin.ID)
	}

	http.SetCookie(w, auth.SessionCookieFor(token, expires, h.secureCookie))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     token,
		"expiresAt": expires,
		"admin":     adminView{ID: admin.ID, Username: admin.Username, Role: admin.Role},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, auth.ClearedSessionCookie(h.secureCookie))
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"admin": adminView{ID: c.Subject, Username: c.Username, Role: c.Role},
	})
}
