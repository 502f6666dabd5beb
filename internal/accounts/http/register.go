package http

import (
	"errors"
	"net/http"

	"github.com/billfold/accounts/internal/accounts/domain"
	"github.com/billfold/accounts/internal/accounts/service"
)

// RegisterHandler serves POST /v1/accounts/register. A successful signup
// returns the user payload plus a token pair, so the client is signed in
// without a follow-up login call.
type RegisterHandler struct {
	UserService  *service.UserService
	TokenService *service.TokenService
}

type registerRequest struct {
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type userPayload struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// authResponse is the shared register/login payload: the user plus the
// flattened token pair.
type authResponse struct {
	User userPayload `json:"user"`
	domain.TokenPair
}

func newUserPayload(u domain.User) userPayload {
	return userPayload{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.UserService.Register(r.Context(), service.RegisterParams{
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "An account with this email already exists.")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	pair, err := h.TokenService.Issue(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Account created successfully.", authResponse{
		User:      newUserPayload(user),
		TokenPair: *pair,
	})
}
