package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/domain"
	"github.com/prn-tf/socrp-membership/internal/service"
)

// AdminHandler serves the staff-only user management surface.
type AdminHandler struct {
	accounts *service.AccountService
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(accounts *service.AccountService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		logger:   logger.With().Str("handler", "admin").Logger(),
	}
}

type userListResponse struct {
	Total   int64             `json:"total"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
	Results []*domain.Account `json:"results"`
}

// updateUserRequest is the typed admin patch. Absent fields are left unchanged.
type updateUserRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	IsActive *bool   `json:"is_active"`
	IsStaff  *bool   `json:"is_staff"`
}

type toggleBlockResponse struct {
	Message string          `json:"message"`
	User    *domain.Account `json:"user"`
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	offset, err := queryInt(query.Get("offset"))
	if err != nil {
		writeFieldErrors(w, "Invalid input", map[string]string{"offset": "must be an integer"})
		return
	}
	limit, err := queryInt(query.Get("limit"))
	if err != nil {
		writeFieldErrors(w, "Invalid input", map[string]string{"limit": "must be an integer"})
		return
	}

	out, err := h.accounts.List(r.Context(), service.ListAccountsInput{
		Search: query.Get("search"),
		Status: query.Get("status"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	results := out.Accounts
	if results == nil {
		results = []*domain.Account{}
	}
	writeJSON(w, http.StatusOK, userListResponse{
		Total:   out.Total,
		Offset:  out.Offset,
		Limit:   out.Limit,
		Results: results,
	})
}

// GetUser handles GET /api/admin/users/{id}.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UpdateUser handles PUT /api/admin/users/{id}.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	account, err := h.accounts.Update(r.Context(), chi.URLParam(r, "id"), domain.AccountPatch{
		FullName: req.FullName,
		Phone:    req.Phone,
		IsActive: req.IsActive,
		IsStaff:  req.IsStaff,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// BlockUser handles POST /api/admin/users/{id}/block.
func (h *AdminHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// UnblockUser handles POST /api/admin/users/{id}/unblock.
func (h *AdminHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *AdminHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	account, err := h.accounts.SetBlocked(r.Context(), chi.URLParam(r, "id"), blocked)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ToggleBlock handles POST /api/admin/users/{id}/toggle-block.
func (h *AdminHandler) ToggleBlock(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.ToggleBlock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	message := "User unblocked successfully"
	if account.IsBlocked {
		message = "User blocked successfully"
	}
	writeJSON(w, http.StatusOK, toggleBlockResponse{Message: message, User: account})
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
