package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/auth"
	"github.com/pyae198022/ShopHub/internal/models"
)

type AuthHandler struct {
	Auth *auth.Service
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login starts a cookie session and also returns a bearer token for API
// clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, r, apperr.Validationf("handlers.Login", "email and password are required"))
		return
	}

	user, err := h.Auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Auth.StartSession(w, r, user); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := h.Auth.IssueToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.EndSession(w, r); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CSRFToken hands browser clients the token for the X-CSRF-Token header.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": csrf.Token(r)})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, id)
}
