package http

import (
	"errors"
	"net/http"

	"github.com/billfold/accounts/internal/accounts/service"
	"github.com/billfold/accounts/pkg/httpx"
)

// ForgotPasswordHandler serves POST /v1/accounts/forgot-password.
//
// The response is the same whether or not the email has an account; only a
// delivery failure for a real account surfaces as an error.
type ForgotPasswordHandler struct {
	ResetService *service.ResetService
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

func (h *ForgotPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required.")
		return
	}

	if err := h.ResetService.Request(r.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrDeliveryFailed) {
			writeError(w, http.StatusInternalServerError, "Failed to send the password reset email. Please try again later.")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, forgotPasswordMessage, nil)
}

// VerifyResetTokenHandler serves POST /v1/accounts/verify-reset-token.
// Front-ends call it before rendering the new-password form so the user
// isn't asked to type a password against a dead link.
type VerifyResetTokenHandler struct {
	ResetService *service.ResetService
}

type verifyResetTokenRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (h *VerifyResetTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req verifyResetTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.ResetService.Verify(r.Context(), req.Email, req.Token); err != nil {
		if errors.Is(err, service.ErrTokenInvalid) {
			httpx.WriteJSON(w, http.StatusBadRequest, errorEnvelope{
				Status:  false,
				Message: "Invalid or expired token",
				Data:    map[string]bool{"valid": false},
			})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Token is valid.", map[string]bool{"valid": true})
}

// ResetPasswordHandler serves POST /v1/accounts/reset-password: redeems a
// reset token and sets the new password.
type ResetPasswordHandler struct {
	ResetService *service.ResetService
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *ResetPasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	err := h.ResetService.Consume(r.Context(), service.ConsumeParams{
		Email:           req.Email,
		Token:           req.Token,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenInvalid):
			writeError(w, http.StatusBadRequest, "Invalid or expired token")
		case errors.Is(err, service.ErrAccountNotFound):
			writeError(w, http.StatusNotFound, "Account not found")
		default:
			writeServiceError(w, r, err)
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Password has been reset successfully.", nil)
}
