package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/auth"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/mt"
	"github.com/hotelier-tech/lingua-engine/pkg/repositories"
	"github.com/hotelier-tech/lingua-engine/pkg/services"
)

// TranslationHandler handles translation store and workflow HTTP requests.
type TranslationHandler struct {
	translationService *services.TranslationService
	statsService       *services.StatsService
	gateway            *mt.Gateway
	logger             *zap.Logger
}

// NewTranslationHandler creates a new TranslationHandler.
func NewTranslationHandler(
	translationService *services.TranslationService,
	statsService *services.StatsService,
	gateway *mt.Gateway,
	logger *zap.Logger,
) *TranslationHandler {
	return &TranslationHandler{
		translationService: translationService,
		statsService:       statsService,
		gateway:            gateway,
		logger:             logger,
	}
}

// RegisterRoutes registers translation routes. Review decisions require the
// reviewer role.
func (h *TranslationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	const base = "/api/translations"
	reviewer := authMiddleware.RequireRole(auth.RoleReviewer)

	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET "+base+"/pending", authMiddleware.RequireAuth(h.ListPending))
	mux.HandleFunc("GET "+base+"/stats", authMiddleware.RequireAuth(h.Stats))
	mux.HandleFunc("POST "+base+"/bulk-review", reviewer(h.BulkReview))
	mux.HandleFunc("POST "+base+"/detect", authMiddleware.RequireAuth(h.DetectLanguage))
	mux.HandleFunc("GET "+base+"/providers", authMiddleware.RequireAuth(h.ProviderHealth))
	mux.HandleFunc("GET "+base+"/providers/languages", authMiddleware.RequireAuth(h.SupportedLanguages))

	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT "+base+"/{id}", authMiddleware.RequireAuth(h.UpdateText))
	mux.HandleFunc("POST "+base+"/{id}/submit", authMiddleware.RequireAuth(h.SubmitForReview))
	mux.HandleFunc("POST "+base+"/{id}/approve", reviewer(h.Approve))
	mux.HandleFunc("POST "+base+"/{id}/reject", reviewer(h.Reject))
	mux.HandleFunc("POST "+base+"/{id}/publish", reviewer(h.Publish))
	mux.HandleFunc("POST "+base+"/{id}/usage", authMiddleware.RequireAuth(h.TrackUsage))

	mux.HandleFunc("GET /api/resources/{type}/{rid}/translations", authMiddleware.RequireAuth(h.GetForResource))
	mux.HandleFunc("GET /api/resources/{type}/{rid}/fields/{field}/{lang}", authMiddleware.RequireAuth(h.GetField))
	mux.HandleFunc("GET /api/resources/{type}/{rid}/fields/{field}/{lang}/history", authMiddleware.RequireAuth(h.GetHistory))
}

// Create handles POST /api/translations.
func (h *TranslationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTranslationRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	req.CreatedBy = auth.GetUserIDFromContext(r.Context())

	t, err := h.translationService.Create(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: t})
}

// Get handles GET /api/translations/{id}.
func (h *TranslationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.translationService.GetByID(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: t})
}

// UpdateText handles PUT /api/translations/{id}.
// Writes never overwrite; a new version supersedes the active row.
func (h *TranslationHandler) UpdateText(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var req services.UpdateTextRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	req.UpdatedBy = auth.GetUserIDFromContext(r.Context())

	t, err := h.translationService.UpdateText(r.Context(), id, req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: t})
}

// SubmitForReview handles POST /api/translations/{id}/submit.
func (h *TranslationHandler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.translationService.SubmitForReview(r.Context(), id, auth.GetUserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: t})
}

// Approve handles POST /api/translations/{id}/approve.
func (h *TranslationHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.translationService.Approve)
}

// Reject handles POST /api/translations/{id}/reject.
func (h *TranslationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.translationService.Reject)
}

// review decodes a review body and applies the given workflow decision. The
// reviewer identity always comes from the authenticated token, never the body.
func (h *TranslationHandler) review(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID, req services.ReviewRequest) (*models.Translation, error),
) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var req services.ReviewRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	req.Reviewer = auth.ReviewerFromContext(r.Context())

	t, err := apply(r.Context(), id, req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: t})
}

// Publish handles POST /api/translations/{id}/publish.
func (h *TranslationHandler) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.translationService.Publish(r.Context(), id, auth.ReviewerFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: t})
}

// ListPending handles GET /api/translations/pending.
func (h *TranslationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	filter := repositories.PendingFilter{
		ResourceType:   r.URL.Query().Get("resource_type"),
		TargetLanguage: r.URL.Query().Get("language"),
		Assignee:       r.URL.Query().Get("assignee"),
		Limit:          queryInt(r, "limit", 50),
	}

	rows, err := h.translationService.ListPending(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rows})
}

// BulkReview handles POST /api/translations/bulk-review.
func (h *TranslationHandler) BulkReview(w http.ResponseWriter, r *http.Request) {
	var req services.BulkReviewRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	req.Reviewer = auth.ReviewerFromContext(r.Context())

	result, err := h.translationService.BulkReview(r.Context(), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result})
}

// Stats handles GET /api/translations/stats.
func (h *TranslationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.LanguageOverview(r.Context(), r.URL.Query().Get("resource_type"))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats})
}

// TrackUsage handles POST /api/translations/{id}/usage.
func (h *TranslationHandler) TrackUsage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var req struct {
		Context string `json:"context,omitempty"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.translationService.TrackUsage(r.Context(), id, req.Context); err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true})
}

// GetForResource handles GET /api/resources/{type}/{rid}/translations.
func (h *TranslationHandler) GetForResource(w http.ResponseWriter, r *http.Request) {
	rows, err := h.translationService.GetForResource(r.Context(), r.PathValue("type"), r.PathValue("rid"),
		repositories.ResourceQuery{
			TargetLanguage: r.URL.Query().Get("language"),
			ServedOnly:     queryBool(r, "served", false),
			IncludeHistory: queryBool(r, "history", false),
		})
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rows})
}

// GetField handles GET /api/resources/{type}/{rid}/fields/{field}/{lang}.
func (h *TranslationHandler) GetField(w http.ResponseWriter, r *http.Request) {
	key := models.TranslationKey{
		ResourceType:   r.PathValue("type"),
		ResourceID:     r.PathValue("rid"),
		FieldName:      r.PathValue("field"),
		TargetLanguage: models.NormalizeLanguageCode(r.PathValue("lang")),
	}

	res, err := h.translationService.GetField(r.Context(), key, queryBool(r, "fallback", true))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: res})
}

// GetHistory handles GET /api/resources/{type}/{rid}/fields/{field}/{lang}/history.
func (h *TranslationHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	key := models.TranslationKey{
		ResourceType:   r.PathValue("type"),
		ResourceID:     r.PathValue("rid"),
		FieldName:      r.PathValue("field"),
		TargetLanguage: models.NormalizeLanguageCode(r.PathValue("lang")),
	}

	rows, err := h.translationService.GetHistory(r.Context(), key)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rows})
}

// DetectLanguage handles POST /api/translations/detect.
func (h *TranslationHandler) DetectLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Text == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "validation", "text is required")
		return
	}

	detection, err := h.gateway.DetectLanguage(r.Context(), req.Text)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: detection})
}

// ProviderHealth handles GET /api/translations/providers.
func (h *TranslationHandler) ProviderHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.gateway.Health()})
}

// SupportedLanguages handles GET /api/translations/providers/languages.
func (h *TranslationHandler) SupportedLanguages(w http.ResponseWriter, r *http.Request) {
	codes, err := h.gateway.SupportedLanguages(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: codes})
}
