package http

import (
	"errors"
	"net/http"

	"github.com/billfold/accounts/internal/accounts/service"
)

// LoginHandler serves POST /v1/accounts/login.
//
// Unknown email and wrong password return the identical response so the
// endpoint cannot be used to probe which addresses hold accounts.
type LoginHandler struct {
	UserService  *service.UserService
	TokenService *service.TokenService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.UserService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, service.ErrAccountDisabled):
			writeError(w, http.StatusForbidden, "Account is disabled")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	pair, err := h.TokenService.Issue(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful.", authResponse{
		User:      newUserPayload(user),
		TokenPair: *pair,
	})
}
