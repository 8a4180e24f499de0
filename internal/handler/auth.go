package handler

import (
	"net/http"
	"time"

	"github.com/msomdec/userdesk/internal/service"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth         *service.AuthService
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure}
}

// login checks credentials and issues a token in the body and a cookie.
// POST /api/v1/auth/login
// Request:  {"email":"...","password":"..."}
// Response: {"success":true,"token":"..."}
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) (*result, error) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		return nil, err
	}

	token, _, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	ttl := h.auth.TokenTTL()
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return &result{
		Status: http.StatusOK,
		Body: struct {
			Success bool   `json:"success"`
			Token   string `json:"token"`
		}{Success: true, Token: token},
	}, nil
}

// me returns the authenticated user.
// GET /api/v1/auth/me
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) (*result, error) {
	user := UserFromContext(r.Context())
	if user == nil {
		return nil, errNotAuthorized
	}
	return ok(toUserDTO(user)), nil
}
