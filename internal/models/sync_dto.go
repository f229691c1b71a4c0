package models

// Wire shapes for the backend's scanner sync endpoints. Field names follow the
// backend's snake_case contract exactly.

// SessionCreateDTO for POST /api/scanners/sessions/
type SessionCreateDTO struct {
	SessionID    string `json:"session_id"`
	CompanyID    int    `json:"empresa"`
	ZoneID       int    `json:"zona"`
	CropID       int    `json:"cultivo"`
	WorkerName   string `json:"worker_name"`
	ModelVersion string `json:"model_version_string"`
	StartedAt    string `json:"started_at"`
	Status       string `json:"status"`
}

// SessionUpdateDTO for PATCH /api/scanners/sessions/{id}/ — partial update
// carrying only status, finish timestamp, notes and counters
type SessionUpdateDTO struct {
	SessionID    string  `json:"session_id"`
	Status       string  `json:"status,omitempty"`
	FinishedAt   *string `json:"finished_at,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	TotalScans   int     `json:"total_scans"`
	HealthyCount int     `json:"healthy_count"`
	PlagueCount  int     `json:"plague_count"`
}

// SessionDTO is the backend's full session representation
type SessionDTO struct {
	SessionID    string      `json:"session_id"`
	CompanyID    int         `json:"empresa"`
	CompanyName  string      `json:"empresa_name,omitempty"`
	ZoneID       int         `json:"zona"`
	ZoneName     string      `json:"zona_name,omitempty"`
	CropID       int         `json:"cultivo"`
	CropName     string      `json:"cultivo_name,omitempty"`
	OwnerID      int         `json:"owner"`
	WorkerName   string      `json:"worker_name"`
	ModelVersion string      `json:"model_version_string"`
	StartedAt    string      `json:"started_at"`
	FinishedAt   *string     `json:"finished_at,omitempty"`
	Status       string      `json:"status"`
	TotalScans   int         `json:"total_scans"`
	HealthyCount int         `json:"healthy_count"`
	PlagueCount  int         `json:"plague_count"`
	Notes        string      `json:"notes,omitempty"`
	ScanResults  []ResultDTO `json:"scan_results,omitempty"`
}

// ResultCreateDTO for result creation and batch sync
type ResultCreateDTO struct {
	ResultID       string  `json:"result_id"`
	SessionID      string  `json:"session"`
	PhotoPath      string  `json:"photo_path"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	HasPlague      bool    `json:"has_plague"`
	ReportID       *int    `json:"report_id,omitempty"`
	ScannedAt      string  `json:"scanned_at"`
}

// ResultDTO is the backend's full result representation
type ResultDTO struct {
	ResultID       string  `json:"result_id"`
	SessionID      string  `json:"session"`
	PhotoPath      string  `json:"photo_path"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	HasPlague      bool    `json:"has_plague"`
	ReportID       *string `json:"report_id,omitempty"`
	ScannedAt      string  `json:"scanned_at"`
	ImageURL       string  `json:"image_url,omitempty"`
}

// SessionSyncData is one session record in a batch sync request, with its
// unsynced results nested
type SessionSyncData struct {
	SessionID    string            `json:"session_id"`
	CompanyID    int               `json:"empresa_id"`
	ZoneID       int               `json:"zona_id"`
	CropID       int               `json:"cultivo_id"`
	WorkerName   string            `json:"worker_name"`
	ModelVersion string            `json:"model_version_string"`
	StartedAt    string            `json:"started_at"`
	FinishedAt   *string           `json:"finished_at,omitempty"`
	Status       string            `json:"status"`
	TotalScans   int               `json:"total_scans"`
	HealthyCount int               `json:"healthy_count"`
	PlagueCount  int               `json:"plague_count"`
	Notes        string            `json:"notes,omitempty"`
	ScanResults  []ResultCreateDTO `json:"scan_results"`
}

// SessionSyncRequest for POST /api/scanners/sessions/sync/
type SessionSyncRequest struct {
	Sessions []SessionSyncData `json:"sessions"`
}

// ResultSyncRequest for POST /api/scanners/results/sync/
type ResultSyncRequest struct {
	Results []ResultCreateDTO `json:"results"`
}

// SyncedItem is a per-item acknowledgment in a sync response
type SyncedItem struct {
	SessionID        string `json:"session_id,omitempty"`
	ResultID         string `json:"result_id,omitempty"`
	Created          bool   `json:"created"`
	ScanResultsCount int    `json:"scan_results_count,omitempty"`
}

// SyncItemError is a per-item rejection in a sync response
type SyncItemError struct {
	SessionID string `json:"session_id,omitempty"`
	ResultID  string `json:"result_id,omitempty"`
	Error     string `json:"error"`
}

// SyncResponse is the batch sync envelope returned by both sync endpoints
type SyncResponse struct {
	Synced      []SyncedItem    `json:"synced"`
	Errors      []SyncItemError `json:"errors"`
	TotalSynced int             `json:"total_synced"`
	TotalErrors int             `json:"total_errors"`
}

// ZoneDTO is the backend's zone representation with nested crops
type ZoneDTO struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Crops       []CropDTO `json:"cultivos,omitempty"`
}

// CropDTO is the backend's crop representation
type CropDTO struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Variety string `json:"variety,omitempty"`
}
