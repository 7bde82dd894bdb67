package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/krishn-mehta/speak-code-build-sub000/internal/errors"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/middleware"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/model"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/service"
	"github.com/krishn-mehta/speak-code-build-sub000/internal/util"
)

const maxPromptLen = 4000

type SiteHandler struct {
	generationService *service.GenerationService
	siteService       *service.SiteService
}

func NewSiteHandler(generationService *service.GenerationService, siteService *service.SiteService) *SiteHandler {
	return &SiteHandler{
		generationService: generationService,
		siteService:       siteService,
	}
}

func (h *SiteHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Generate)
	r.Get("/", h.List)

	r.Route("/{siteID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Post("/iterate", h.Iterate)
		r.Post("/live-edit", h.LiveEdit)
		r.Post("/restore", h.Restore)
		r.Get("/versions", h.ListVersions)
		r.Get("/preview", h.Preview)
		r.Get("/export", h.Export)
	})

	return r
}

// POST /v1/sites
// Runs the full generation pipeline: debit, backend call, parse, persist.
func (h *SiteHandler) Generate(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	var req struct {
		Prompt         string  `json:"prompt"`
		TemplateKind   string  `json:"templateKind"`
		Title          string  `json:"title"`
		ConversationID *string `json:"conversationId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if req.Prompt == "" {
		writeError(w, apperrors.MissingRequired("prompt"))
		return
	}
	if len(req.Prompt) > maxPromptLen {
		writeError(w, apperrors.InvalidInput("prompt", fmt.Sprintf("must be at most %d characters", maxPromptLen)))
		return
	}
	if req.TemplateKind == "" {
		req.TemplateKind = string(model.TemplateBlank)
	}
	if !util.IsValidEnum(req.TemplateKind, model.TemplateKinds) {
		writeError(w, apperrors.InvalidInput("templateKind", "unknown template kind"))
		return
	}
	if req.ConversationID != nil && !util.IsValidUUID(*req.ConversationID) {
		writeError(w, apperrors.InvalidInput("conversationId", "must be a UUID"))
		return
	}
	if req.Title == "" {
		req.Title = "Untitled Site"
	}

	site, err := h.generationService.Generate(r.Context(), service.GenerateParams{
		OwnerID:        account.UserID,
		ConversationID: req.ConversationID,
		Prompt:         req.Prompt,
		TemplateKind:   model.TemplateKind(req.TemplateKind),
		Title:          req.Title,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, site)
}

// POST /v1/sites/{siteID}/iterate
func (h *SiteHandler) Iterate(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}
	siteID := chi.URLParam(r, "siteID")

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.Prompt == "" {
		writeError(w, apperrors.MissingRequired("prompt"))
		return
	}
	if len(req.Prompt) > maxPromptLen {
		writeError(w, apperrors.InvalidInput("prompt", fmt.Sprintf("must be at most %d characters", maxPromptLen)))
		return
	}

	site, err := h.generationService.Iterate(r.Context(), siteID, account.UserID, req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

// POST /v1/sites/{siteID}/live-edit
// Persists a user-authored edit as a new version, no backend involved.
func (h *SiteHandler) LiveEdit(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}
	siteID := chi.URLParam(r, "siteID")

	var req struct {
		Markup  string  `json:"markup"`
		Style   string  `json:"style"`
		Script  *string `json:"script"`
		Summary string  `json:"summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.Markup == "" {
		writeError(w, apperrors.MissingRequired("markup"))
		return
	}

	site, err := h.generationService.LiveEdit(r.Context(), siteID, account.UserID, model.SiteContent{
		Markup: req.Markup,
		Style:  req.Style,
		Script: req.Script,
	}, req.Summary)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

// POST /v1/sites/{siteID}/restore
func (h *SiteHandler) Restore(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}
	siteID := chi.URLParam(r, "siteID")

	var req struct {
		Version int `json:"version"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.Version < 1 {
		writeError(w, apperrors.InvalidInput("version", "must be at least 1"))
		return
	}

	site, err := h.siteService.Restore(r.Context(), siteID, account.UserID, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

// GET /v1/sites
func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	pagination := ParsePagination(r)
	sites, total, err := h.siteService.ListByOwner(r.Context(), account.UserID, pagination.Limit, pagination.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sites":  sites,
		"total":  total,
		"limit":  pagination.Limit,
		"offset": pagination.Offset,
	})
}

// GET /v1/sites/{siteID}
func (h *SiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	site, err := h.siteService.Get(r.Context(), chi.URLParam(r, "siteID"), account.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, site)
}

// DELETE /v1/sites/{siteID}
func (h *SiteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	if err := h.siteService.Delete(r.Context(), chi.URLParam(r, "siteID"), account.UserID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

// GET /v1/sites/{siteID}/versions
func (h *SiteHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	versions, err := h.siteService.ListVersions(r.Context(), chi.URLParam(r, "siteID"), account.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// GET /v1/sites/{siteID}/preview?viewport=desktop|tablet|mobile
// Previews are free reads; only generation-class actions are metered.
func (h *SiteHandler) Preview(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	viewport := r.URL.Query().Get("viewport")
	if viewport == "" {
		viewport = string(model.ViewportDesktop)
	}
	if !util.IsValidEnum(viewport, model.Viewports) {
		writeError(w, apperrors.InvalidInput("viewport", "must be one of desktop, tablet, mobile"))
		return
	}

	site, err := h.siteService.Get(r.Context(), chi.URLParam(r, "siteID"), account.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	doc := service.RenderPreview(model.SiteContent{
		Markup: site.Markup,
		Style:  site.Style,
		Script: site.Script,
	}, model.Viewport(viewport))

	writeJSON(w, http.StatusOK, doc)
}

// GET /v1/sites/{siteID}/export
// Charges the export action and returns the standalone document.
func (h *SiteHandler) Export(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	if account == nil {
		writeError(w, apperrors.Unauthorized("Unauthorized"))
		return
	}

	doc, err := h.generationService.Export(r.Context(), chi.URLParam(r, "siteID"), account.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="site.html"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc.Document))
}
