package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/cropcare/fieldsync/internal/models"
	"github.com/cropcare/fieldsync/internal/services"
)

// SyncHandler exposes the sync queue state and manual sync triggering
type SyncHandler struct {
	syncService *services.SyncService
	scheduler   *services.SchedulerService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *services.SyncService, scheduler *services.SchedulerService) *SyncHandler {
	return &SyncHandler{syncService: syncService, scheduler: scheduler}
}

// Status reports pending counts and the last sync outcome
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.syncService.Status(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}

	h.respondJSON(w, http.StatusOK, status)
}

// TriggerNow requests an immediate sync pass. The pass runs on the scheduler's
// goroutine; the request returns as soon as it is queued.
func (h *SyncHandler) TriggerNow(w http.ResponseWriter, r *http.Request) {
	h.scheduler.TriggerImmediate()
	h.respondJSON(w, http.StatusAccepted, map[string]string{"status": "sync queued"})
}

// RefreshSessions re-pulls the worker's sessions from the backend into the
// local store
func (h *SyncHandler) RefreshSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.syncService.RefreshSessions(r.Context()); err != nil {
		h.respondError(w, http.StatusBadGateway, "Backend unreachable.")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *SyncHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SyncHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
