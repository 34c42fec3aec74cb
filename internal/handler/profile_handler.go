package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/socrp-membership/internal/auth"
	"github.com/prn-tf/socrp-membership/internal/service"
)

// ProfileHandler serves the member's own profile and its share links.
type ProfileHandler struct {
	profiles *service.ProfileService
	links    *service.ShareLinkService
	clientIP *ClientIPResolver
	logger   zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(
	profiles *service.ProfileService,
	links *service.ShareLinkService,
	clientIP *ClientIPResolver,
	logger zerolog.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		links:    links,
		clientIP: clientIP,
		logger:   logger.With().Str("handler", "profile").Logger(),
	}
}

type generateShareRequest struct {
	Days int `json:"days"`
}

type generateShareResponse struct {
	ShareURL   string    `json:"shareUrl"`
	ExpiryDate time.Time `json:"expiryDate"`
}

type shareListResponse struct {
	Links []*service.ShareLinkInfo `json:"links"`
}

// Me handles GET /api/profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())

	view, err := h.profiles.Own(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GenerateShare handles POST /api/profile/share/generate.
func (h *ProfileHandler) GenerateShare(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())

	var req generateShareRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeRequestError(w, err)
		return
	}

	out, err := h.links.Generate(r.Context(), service.GenerateShareLinkInput{
		AccountID: p.AccountID,
		Days:      req.Days,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, generateShareResponse{
		ShareURL:   out.URL,
		ExpiryDate: out.Link.ExpiresAt,
	})
}

// ListShares handles GET /api/profile/share.
func (h *ProfileHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFromContext(r.Context())

	links, err := h.links.List(r.Context(), p.AccountID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shareListResponse{Links: links})
}

// ResolveShare handles GET /api/profile/share/{token}. It is public: the
// token is the only credential.
func (h *ProfileHandler) ResolveShare(w http.ResponseWriter, r *http.Request) {
	view, err := h.links.Resolve(r.Context(), service.ResolveShareLinkInput{
		Token:     chi.URLParam(r, "token"),
		IPAddress: h.clientIP.Resolve(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}
