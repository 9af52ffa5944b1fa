package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/leadwerk/leadwerk-engine/pkg/auth"
	"github.com/leadwerk/leadwerk-engine/pkg/models"
	"github.com/leadwerk/leadwerk-engine/pkg/services"
)

// RouterSettingsHandler exposes the routing weight configuration to the
// back office.
type RouterSettingsHandler struct {
	settings services.SettingsService
	logger   *zap.Logger
}

// NewRouterSettingsHandler creates a new router settings handler.
func NewRouterSettingsHandler(settings services.SettingsService, logger *zap.Logger) *RouterSettingsHandler {
	return &RouterSettingsHandler{settings: settings, logger: logger}
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *RouterSettingsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/router-settings", authMiddleware.RequireAdmin(h.Get))
	mux.HandleFunc("PUT /api/router-settings", authMiddleware.RequireAdmin(h.Update))
}

// Get handles GET /api/router-settings
func (h *RouterSettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: settings}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/router-settings
// Values are clamped to [0,100] rather than rejected.
func (h *RouterSettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var settings models.RouterSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "bad_request", "Ongeldige aanvraag"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	updated, err := h.settings.Update(r.Context(), settings)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: updated}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
