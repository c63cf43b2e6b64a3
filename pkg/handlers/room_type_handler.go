package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/hotelier-tech/lingua-engine/pkg/apperrors"
	"github.com/hotelier-tech/lingua-engine/pkg/auth"
	"github.com/hotelier-tech/lingua-engine/pkg/models"
	"github.com/hotelier-tech/lingua-engine/pkg/services"
)

// RoomTypeHandler handles room type catalog and localization HTTP requests.
type RoomTypeHandler struct {
	localizationService *services.LocalizationService
	statsService        *services.StatsService
	logger              *zap.Logger
}

// NewRoomTypeHandler creates a new RoomTypeHandler.
func NewRoomTypeHandler(
	localizationService *services.LocalizationService,
	statsService *services.StatsService,
	logger *zap.Logger,
) *RoomTypeHandler {
	return &RoomTypeHandler{
		localizationService: localizationService,
		statsService:        statsService,
		logger:              logger,
	}
}

// RegisterRoutes registers room type routes. Catalog writes require the admin
// role.
func (h *RoomTypeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	const base = "/api/room-types"
	admin := authMiddleware.RequireRole(auth.RoleAdmin)

	mux.HandleFunc("GET "+base, authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST "+base, admin(h.Create))
	mux.HandleFunc("GET "+base+"/by-code/{code}", authMiddleware.RequireAuth(h.GetByCode))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT "+base+"/{id}", admin(h.Update))
	mux.HandleFunc("GET "+base+"/{id}/completeness", authMiddleware.RequireAuth(h.Completeness))
	mux.HandleFunc("POST "+base+"/{id}/refresh-stats", admin(h.RefreshStats))
}

// List handles GET /api/room-types.
func (h *RoomTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	roomTypes, err := h.localizationService.ListRoomTypes(r.Context(), queryBool(r, "active", true))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: roomTypes})
}

// Create handles POST /api/room-types.
// Creating a room type opens pending translation work for every active
// language and may queue automatic translation.
func (h *RoomTypeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var rt models.RoomType
	if err := decodeBody(r, &rt); err != nil {
		WriteError(w, err)
		return
	}

	created, err := h.localizationService.CreateRoomType(r.Context(), &rt, auth.GetUserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: created})
}

// Get handles GET /api/room-types/{id}.
// With ?language= the room type is returned localized for that language,
// falling back to base-language text where no served translation exists.
func (h *RoomTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	if language := r.URL.Query().Get("language"); language != "" {
		localized, err := h.localizationService.LocalizeRoomType(r.Context(), id, language)
		if err != nil {
			WriteError(w, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: localized})
		return
	}

	rt, err := h.localizationService.GetRoomType(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: rt})
}

// GetByCode handles GET /api/room-types/by-code/{code}.
func (h *RoomTypeHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	language := r.URL.Query().Get("language")
	if language == "" {
		WriteError(w, apperrors.Validation("language", "language query parameter is required"))
		return
	}

	localized, err := h.localizationService.LocalizeRoomTypeByCode(r.Context(), r.PathValue("code"), language)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: localized})
}

// Update handles PUT /api/room-types/{id}.
// Changed base-language fields fan out as new translation versions.
func (h *RoomTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var rt models.RoomType
	if err := decodeBody(r, &rt); err != nil {
		WriteError(w, err)
		return
	}
	rt.ID = id

	updated, err := h.localizationService.UpdateRoomType(r.Context(), &rt, auth.GetUserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: updated})
}

// Completeness handles GET /api/room-types/{id}/completeness.
func (h *RoomTypeHandler) Completeness(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	language := r.URL.Query().Get("language")
	if language == "" {
		WriteError(w, apperrors.Validation("language", "language query parameter is required"))
		return
	}

	pct, err := h.statsService.RoomTypeCompleteness(r.Context(), id, language)
	if err != nil {
		WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: map[string]float64{"completeness": pct}})
}

// RefreshStats handles POST /api/room-types/{id}/refresh-stats.
// Recomputes completeness for every active language and stores the embedded
// per-language status on the room type.
func (h *RoomTypeHandler) RefreshStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.statsService.RefreshRoomType(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Info("room type stats refreshed", zap.String("room_type_id", id.String()))
	_ = WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result})
}
