package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cropcare/fieldsync/internal/models"
	"github.com/cropcare/fieldsync/internal/services"
)

// SessionHandler handles scouting session endpoints
type SessionHandler struct {
	sessionService *services.SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Start begins a new scouting session
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	session, err := h.sessionService.StartSession(r.Context(), req.ZoneID, req.CropID, req.ModelVersion)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, session)
}

// List returns all sessions, most recent first
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionService.ListSessions(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if sessions == nil {
		sessions = []*models.ScanSession{}
	}

	h.respondJSON(w, http.StatusOK, models.SessionListResponse{
		Sessions:   sessions,
		TotalCount: len(sessions),
	})
}

// Active returns the currently active session, if any
func (h *SessionHandler) Active(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.GetActiveSession(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if session == nil {
		h.respondError(w, http.StatusNotFound, "No active session.")
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// Get returns a single session by ID
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.sessionService.GetSession(r.Context(), sessionID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if session == nil {
		h.respondError(w, http.StatusNotFound, "Session not found.")
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// Finish completes a session with optional notes
func (h *SessionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req models.FinishSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
	}

	session, err := h.sessionService.FinishSession(r.Context(), sessionID, req.Notes)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// Cancel aborts a session
func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.sessionService.CancelSession(r.Context(), sessionID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, session)
}

// RecordResult stores one classified photo under a session
func (h *SessionHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req models.RecordResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := h.sessionService.RecordResult(r.Context(), sessionID, req)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, result)
}

// ListResults returns a session's results
func (h *SessionHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	results, err := h.sessionService.ResultsBySession(r.Context(), sessionID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Database error.")
		return
	}
	if results == nil {
		results = []*models.ScanResult{}
	}

	h.respondJSON(w, http.StatusOK, models.ResultListResponse{
		Results:    results,
		TotalCount: len(results),
	})
}

// LinkReport attaches a filed report to a result
func (h *SessionHandler) LinkReport(w http.ResponseWriter, r *http.Request) {
	resultID := chi.URLParam(r, "resultId")

	var req models.LinkReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.ReportID == "" {
		h.respondError(w, http.StatusBadRequest, "reportId is required.")
		return
	}

	result, err := h.sessionService.LinkReport(r.Context(), resultID, req.ReportID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// respondDomainError maps model errors onto HTTP statuses
func (h *SessionHandler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrResultNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrActiveSessionOpen):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrSessionNotActive):
		h.respondError(w, http.StatusConflict, err.Error())
	default:
		var sessionErr models.SessionError
		if errors.As(err, &sessionErr) {
			h.respondError(w, http.StatusBadRequest, sessionErr.Message)
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func (h *SessionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *SessionHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
