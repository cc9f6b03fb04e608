/**
 * @description
 * This file contains the HTTP handlers for admin authentication: signup,
 * login, and token verification. Signup and login return a signed JWT along
 * with the admin identity; verify echoes the identity the auth middleware
 * extracted from the bearer token.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: Auth logic, models, custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onboardhq/kyc-service/internal/app"
	"github.com/onboardhq/kyc-service/internal/domain"
	"github.com/onboardhq/kyc-service/internal/store"
)

func adminPayload(admin *domain.Admin) map[string]string {
	return map[string]string{
		"id":    admin.ID.String(),
		"email": admin.Email,
	}
}

// SignupHandler serves POST /api/admin/signup.
func (h *Handlers) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	admin, token, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		var domainErr *app.EmailDomainError
		switch {
		case errors.Is(err, store.ErrEmailTaken):
			h.writeError(w, http.StatusConflict, "Email already registered")
		case errors.As(err, &domainErr),
			errors.Is(err, app.ErrFieldsRequired),
			errors.Is(err, app.ErrPasswordMismatch),
			errors.Is(err, app.ErrPasswordTooShort):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, "Failed to create admin")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Admin created successfully",
		"token":   token,
		"admin":   adminPayload(admin),
	})
}

// LoginHandler serves POST /api/admin/login.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	admin, token, err := h.auth.Login(r.Context(), req)
	if err != nil {
		var domainErr *app.EmailDomainError
		switch {
		case errors.As(err, &domainErr):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredentials):
			h.writeError(w, http.StatusUnauthorized, "Invalid email or password")
		default:
			h.writeError(w, http.StatusInternalServerError, "Failed to log in")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   token,
		"admin":   adminPayload(admin),
	})
}

// VerifyHandler serves GET /api/admin/verify. It only runs behind the auth
// middleware, so reaching it means the token checked out.
func (h *Handlers) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := AdminFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Token is valid",
		"admin": map[string]string{
			"id":    identity.ID,
			"email": identity.Email,
		},
	})
}
