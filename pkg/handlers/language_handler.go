package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/auth"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/services"
)

// LanguageHandler handles language registry HTTP requests.
type LanguageHandler struct {
	languageService *services.LanguageService
	logger          *zap.Logger
}

// NewLanguageHandler creates a new LanguageHandler.
func NewLanguageHandler(languageService *services.LanguageService, logger *zap.Logger) *LanguageHandler {
	return &LanguageHandler{
		languageService: languageService,
		logger:          logger,
	}
}

// RegisterRoutes registers language routes. Reads require authentication;
// registry writes require the admin role.
func (h *LanguageHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	const base = "/api/languages"
	admin := authMiddleware.RequireRole(auth.RoleAdmin)

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST "+base, admin(h.Create))
	mux.HandleFunc("GET "+base+"/default", authMiddleware.RequireAuth(h.GetDefault))
	mux.HandleFunc("GET "+base+"/{code}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT "+base+"/{code}", admin(h.Update))
	mux.HandleFunc("DELETE "+base+"/{code}", admin(h.Deactivate))
	mux.HandleFunc("POST "+base+"/{code}/default", admin(h.SetDefault))
	mux.HandleFunc("PUT "+base+"/{code}/channels", admin(h.SetChannelMapping))
}

// List handles GET /api/languages.
// Supports ?active=true, ?channel=... and ?context=... filters.
func (h *LanguageHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		langs []*models.Language
		err   error
	)
	switch {
	case r.URL.Query().Get("channel") != "":
		langs, err = h.languageService.ListByChannel(r.Context(), r.URL.Query().Get("channel"))
	case r.URL.Query().Get("context") != "":
		langs, err = h.languageService.ListByContext(r.Context(), r.URL.Query().Get("context"))
	default:
		langs, err = h.languageService.List(r.Context(), queryBool(r, "active", true))
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: langs})
}

// Get handles GET /api/languages/{code}.
func (h *LanguageHandler) Get(w http.ResponseWriter, r *http.Request) {
	lang, err := h.languageService.GetByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lang})
}

// Create handles POST /api/languages.
func (h *LanguageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateLanguageRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	lang, err := h.languageService.Create(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: lang})
}

// Update handles PUT /api/languages/{code}.
func (h *LanguageHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateLanguageRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	lang, err := h.languageService.Update(r.Context(), r.PathValue("code"), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lang})
}

// Deactivate handles DELETE /api/languages/{code}.
// Languages are never hard-deleted; translations keep referencing them.
func (h *LanguageHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	revision := int64(queryInt(r, "revision", 0))
	lang, err := h.languageService.Deactivate(r.Context(), r.PathValue("code"), revision)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lang})
}

// GetDefault handles GET /api/languages/default.
func (h *LanguageHandler) GetDefault(w http.ResponseWriter, r *http.Request) {
	lang, err := h.languageService.GetDefault(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lang})
}

// SetDefault handles POST /api/languages/{code}/default.
func (h *LanguageHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	lang, err := h.languageService.SetDefault(r.Context(), r.PathValue("code"))
	if err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Info("default language changed", zap.String("code", lang.Code))
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lang})
}

// channelMappingRequest wraps a channel mapping with the guarding revision.
type channelMappingRequest struct {
	Revision int64                 `json:"revision"`
	Mapping  models.ChannelMapping `json:"mapping"`
}

// SetChannelMapping handles PUT /api/languages/{code}/channels.
func (h *LanguageHandler) SetChannelMapping(w http.ResponseWriter, r *http.Request) {
	var req channelMappingRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	lang, err := h.languageService.SetChannelMapping(r.Context(), r.PathValue("code"), req.Revision, req.Mapping)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: lang})
}
