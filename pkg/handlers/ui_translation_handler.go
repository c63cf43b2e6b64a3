package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/auth"
	"github.com/hotelier-tech/lingua-engine/pkg/services"
)

// UITranslationHandler handles namespaced UI string HTTP requests.
type UITranslationHandler struct {
	uiService *services.UITranslationService
	logger    *zap.Logger
}

// NewUITranslationHandler creates a new UITranslationHandler.
func NewUITranslationHandler(uiService *services.UITranslationService, logger *zap.Logger) *UITranslationHandler {
	return &UITranslationHandler{uiService: uiService, logger: logger}
}

// RegisterRoutes registers UI translation routes. Saving strings is open to
// translators, approvals to reviewers and deletion to admins.
func (h *UITranslationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	const base = "/api/ui/namespaces"
	admin := authMiddleware.RequireRole(auth.RoleAdmin)
	reviewer := authMiddleware.RequireRole(auth.RoleReviewer)
	translator := authMiddleware.RequireRole(auth.RoleTranslator)

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.ListNamespaces))
	mux.HandleFunc("GET "+base+"/{namespace}", authMiddleware.RequireAuth(h.GetNamespace))
	mux.HandleFunc("POST "+base+"/{namespace}/batch", authMiddleware.RequireAuth(h.GetBatch))
	mux.HandleFunc("PUT "+base+"/{namespace}/{key}", translator(h.Save))
	mux.HandleFunc("DELETE "+base+"/{namespace}/{key}", admin(h.DeleteKey))
	mux.HandleFunc("POST "+base+"/{namespace}/{key}/approve", reviewer(h.ApproveEntry))
	mux.HandleFunc("POST "+base+"/{namespace}/translate", translator(h.TranslateNamespace))
	mux.HandleFunc("GET "+base+"/{namespace}/stats", authMiddleware.RequireAuth(h.Stats))
}

// ListNamespaces handles GET /api/ui/namespaces.
func (h *UITranslationHandler) ListNamespaces(w http.ResponseWriter, r *http.Request) {
	namespaces, err := h.uiService.ListNamespaces(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: namespaces})
}

// GetNamespace handles GET /api/ui/namespaces/{namespace}.
// With ?language= the response includes synthesized pending entries for keys
// not yet translated into that language.
func (h *UITranslationHandler) GetNamespace(w http.ResponseWriter, r *http.Request) {
	docs, err := h.uiService.GetNamespace(r.Context(), r.PathValue("namespace"), r.URL.Query().Get("language"))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: docs})
}

// GetBatch handles POST /api/ui/namespaces/{namespace}/batch.
func (h *UITranslationHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if len(req.Keys) == 0 {
		WriteError(w, apperrors.Validation("keys", "at least one key is required"))
		return
	}

	docs, err := h.uiService.GetBatch(r.Context(), r.PathValue("namespace"), req.Keys)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: docs})
}

// Save handles PUT /api/ui/namespaces/{namespace}/{key}.
func (h *UITranslationHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req services.SaveUIStringRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	req.Namespace = r.PathValue("namespace")
	req.Key = r.PathValue("key")
	req.Actor = auth.GetUserIDFromContext(r.Context())

	doc, err := h.uiService.Save(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: doc})
}

// ApproveEntry handles POST /api/ui/namespaces/{namespace}/{key}/approve.
func (h *UITranslationHandler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	if language == "" {
		WriteError(w, apperrors.Validation("language", "language query parameter is required"))
		return
	}

	doc, err := h.uiService.ApproveEntry(r.Context(), r.PathValue("namespace"), r.PathValue("key"),
		language, auth.ReviewerFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: doc})
}

// DeleteKey handles DELETE /api/ui/namespaces/{namespace}/{key}.
func (h *UITranslationHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.uiService.DeleteKey(r.Context(), r.PathValue("namespace"), r.PathValue("key")); err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// TranslateNamespace handles POST /api/ui/namespaces/{namespace}/translate.
// Fills missing entries for the requested language via the provider gateway.
// A provider outage after partial progress still reports the filled count.
func (h *UITranslationHandler) TranslateNamespace(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	if language == "" {
		WriteError(w, apperrors.Validation("language", "language query parameter is required"))
		return
	}

	translated, err := h.uiService.TranslateNamespace(r.Context(), r.PathValue("namespace"), language)
	if err != nil {
		h.logger.Warn("namespace translation incomplete",
			zap.String("namespace", r.PathValue("namespace")),
			zap.String("language", language),
			zap.Int("translated", translated),
			zap.Error(err))
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]int{"translated": translated}})
}

// Stats handles GET /api/ui/namespaces/{namespace}/stats.
func (h *UITranslationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	if language == "" {
		WriteError(w, apperrors.Validation("language", "language query parameter is required"))
		return
	}

	stats, err := h.uiService.Stats(r.Context(), r.PathValue("namespace"), language)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats})
}
