package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/service"
)

const (
	msgRegistered      = "User registered successfully. Check your email for verification."
	msgJustVerified    = "Email verified successfully. You can now login."
	msgAlreadyVerified = "Email is already verified. You can login."
	msgResendAccepted  = "If the address belongs to a pending account, a new verification email is on its way."
)

// RegistrationHandler serves sign-up and email verification.
type RegistrationHandler struct {
	registration *service.RegistrationService
	verification *service.VerificationService
	logger       zerolog.Logger
}

// NewRegistrationHandler creates a new RegistrationHandler.
func NewRegistrationHandler(
	registration *service.RegistrationService,
	verification *service.VerificationService,
	logger zerolog.Logger,
) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		verification: verification,
		logger:       logger.With().Str("handler", "registration").Logger(),
	}
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	FullName        string `json:"full_name" validate:"required,max=255"`
	Phone           string `json:"phone" validate:"omitempty,max=20"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type registerResponse struct {
	Message      string `json:"message"`
	MembershipID string `json:"membership_id"`
}

type verifyResponse struct {
	Message string               `json:"message"`
	Result  service.VerifyResult `json:"result"`
}

type resendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Register handles POST /api/register.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	out, err := h.registration.Register(r.Context(), service.RegisterInput{
		Email:           req.Email,
		FullName:        req.FullName,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:      msgRegistered,
		MembershipID: out.Account.MembershipID,
	})
}

// Verify handles GET /api/verify/{reference}.
func (h *RegistrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	out, err := h.verification.Verify(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	message := msgJustVerified
	if out.Result == service.VerifyResultAlreadyVerified {
		message = msgAlreadyVerified
	}
	writeJSON(w, http.StatusOK, verifyResponse{Message: message, Result: out.Result})
}

// Resend handles POST /api/verify/resend. The answer never depends on
// whether the address is known.
func (h *RegistrationHandler) Resend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	if err := h.verification.Resend(r.Context(), req.Email); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusAccepted, msgResendAccepted)
}
