package http

import (
	"errors"
	"net/http"

	"github.com/billfold/accounts/internal/accounts/service"
)

// RefreshHandler serves POST /v1/accounts/token/refresh. The presented
// refresh token is rotated: the response carries a new one and the old one
// is dead even if this response is lost.
type RefreshHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refresh"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token is required.")
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Token refreshed.", pair)
}
