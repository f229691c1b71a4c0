package models

import "time"

// StartSessionRequest is the request body for starting a scouting session
type StartSessionRequest struct {
	ZoneID       string `json:"zoneId"`
	CropID       string `json:"cropId"`
	ModelVersion string `json:"modelVersion"`
}

// RecordResultRequest is the request body for recording a classified photo
type RecordResultRequest struct {
	PhotoPath      string  `json:"photoPath"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	HasPlague      bool    `json:"hasPlague"`
}

// FinishSessionRequest is the request body for finishing a session
type FinishSessionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// LinkReportRequest is the request body for linking a report to a result
type LinkReportRequest struct {
	ReportID string `json:"reportId"`
}

// SessionListResponse is returned when listing sessions
type SessionListResponse struct {
	Sessions   []*ScanSession `json:"sessions"`
	TotalCount int            `json:"totalCount"`
}

// ResultListResponse is returned when listing results of a session
type ResultListResponse struct {
	Results    []*ScanResult `json:"results"`
	TotalCount int           `json:"totalCount"`
}

// SyncStatusResponse for GET /api/sync/status
type SyncStatusResponse struct {
	PendingSessions int        `json:"pendingSessions"`
	PendingResults  int        `json:"pendingResults"`
	SyncInFlight    bool       `json:"syncInFlight"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`
	LastSyncOK      bool       `json:"lastSyncOk"`
}

// HealthResponse is returned by health check
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error string `json:"error"`
}
