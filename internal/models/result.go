package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScanResult represents one classified photo within a session. HasPlague is
// derived from the classification at creation time and is never re-derived
// during sync. ScannedAt is epoch milliseconds.
type ScanResult struct {
	ID             string  `json:"id"`
	SessionID      string  `json:"sessionId"`
	PhotoPath      string  `json:"photoPath"`
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	HasPlague      bool    `json:"hasPlague"`
	ScannedAt      int64   `json:"scannedAt"`
	ReportID       *string `json:"reportId,omitempty"`
	Synced         bool    `json:"synced"`
}

// NewScanResult creates a result for a classified photo
func NewScanResult(sessionID, photoPath, classification string, confidence float64, hasPlague bool) (*ScanResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrEmptySession
	}
	if strings.TrimSpace(classification) == "" {
		return nil, ErrEmptyClassification
	}
	if confidence < 0 || confidence > 1 {
		return nil, ErrInvalidConfidence
	}

	return &ScanResult{
		ID:             uuid.New().String(),
		SessionID:      sessionID,
		PhotoPath:      photoPath,
		Classification: classification,
		Confidence:     confidence,
		HasPlague:      hasPlague,
		ScannedAt:      time.Now().UTC().UnixMilli(),
	}, nil
}

// LinkReport attaches a filed report to the result
func (r *ScanResult) LinkReport(reportID string) {
	r.ReportID = &reportID
	r.Synced = false
}

var (
	ErrEmptySession        = SessionError{"session id cannot be empty"}
	ErrEmptyClassification = SessionError{"classification cannot be empty"}
	ErrInvalidConfidence   = SessionError{"confidence must be between 0 and 1"}
	ErrResultNotFound      = SessionError{"scan result not found"}
)
