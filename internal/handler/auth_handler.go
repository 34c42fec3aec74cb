package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/service"
)

// AuthHandler serves token issuance for members and staff.
type AuthHandler struct {
	credentials *service.CredentialService
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(credentials *service.CredentialService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		logger:      logger.With().Str("handler", "auth").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

type adminLoginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    *domain.Account `json:"user"`
}

// Token handles POST /api/token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	out, err := h.credentials.Login(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Access:  out.Tokens.AccessToken,
		Refresh: out.Tokens.RefreshToken,
	})
}

// Refresh handles POST /api/token/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	out, err := h.credentials.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Access: out.AccessToken})
}

// AdminLogin handles POST /api/admin/login.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	out, err := h.credentials.AdminLogin(r.Context(), service.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, adminLoginResponse{
		Access:  out.Tokens.AccessToken,
		Refresh: out.Tokens.RefreshToken,
		User:    out.Account,
	})
}
