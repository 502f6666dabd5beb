package http

import (
	"errors"
	"net/http"

	"github.com/billfold/accounts/internal/accounts/service"
)

// LogoutHandler serves POST /v1/accounts/logout. It requires a valid access
// token and revokes the refresh token carried in the body. A token that was
// never issued is rejected; logging out twice with the same token still
// succeeds.
type LogoutHandler struct {
	TokenService *service.TokenService
}

type logoutRequest struct {
	RefreshToken string `json:"refresh"`
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required.")
		return
	}

	if err := h.TokenService.Revoke(r.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			writeError(w, http.StatusBadRequest, "Invalid refresh token")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Logged out successfully.", nil)
}
