package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cropcare/fieldsync/internal/models"
	"github.com/cropcare/fieldsync/internal/repository"
	"github.com/cropcare/fieldsync/internal/services"
)

// ZoneHandler serves the locally cached zone and crop reference data
type ZoneHandler struct {
	zoneRepo    repository.ZoneRepo
	syncService *services.SyncService
}

// NewZoneHandler creates a new ZoneHandler
func NewZoneHandler(zoneRepo repository.ZoneRepo, syncService *services.SyncService) *ZoneHandler {
	return &ZoneHandler{zoneRepo: zoneRepo, syncService: syncService}
}

// List returns all cached zones
func (h *ZoneHandler) List(w http.ResponseWriter, r *http.Request) {
	zones, err := h.zoneRepo.GetZones(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if zones == nil {
		zones = []*models.Zone{}
	}

	h.respondJSON(w, http.StatusOK, zones)
}

// ListCrops returns the cached crops of a zone
func (h *ZoneHandler) ListCrops(w http.ResponseWriter, r *http.Request) {
	zoneID := chi.URLParam(r, "zoneId")

	crops, err := h.zoneRepo.GetCropsByZone(r.Context(), zoneID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if crops == nil {
		crops = []*models.Crop{}
	}

	h.respondJSON(w, http.StatusOK, crops)
}

// Refresh re-pulls zones and crops from the backend into the local cache
func (h *ZoneHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.syncService.RefreshZones(r.Context()); err != nil {
		h.respondError(w, http.StatusBadGateway, "Backend unreachable.")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *ZoneHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ZoneHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
