package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a scan session
type SessionStatus string

const (
	StatusActive    SessionStatus = "ACTIVE"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusCancelled SessionStatus = "CANCELLED"
)

// ParseSessionStatus decodes a wire status string. Unrecognized values are a
// decode error rather than a silent default so data corruption is visible to
// the caller.
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled:
		return StatusCancelled, nil
	default:
		return "", ErrUnknownStatus
	}
}

// IsTerminal reports whether the session can no longer accept results
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ScanSession represents one scouting episode by a worker in a zone/crop.
// The ID is client-generated and is the reconciliation key with the backend;
// it never changes after creation. StartedAt/FinishedAt are epoch milliseconds.
type ScanSession struct {
	ID           string        `json:"id"`
	WorkerID     string        `json:"workerId"`
	WorkerName   string        `json:"workerName"`
	ZoneID       string        `json:"zoneId"`
	ZoneName     string        `json:"zoneName"`
	CropID       string        `json:"cropId"`
	CropName     string        `json:"cropName"`
	ModelVersion string        `json:"modelVersion"`
	StartedAt    int64         `json:"startedAt"`
	FinishedAt   *int64        `json:"finishedAt,omitempty"`
	Status       SessionStatus `json:"status"`
	TotalScans   int           `json:"totalScans"`
	HealthyCount int           `json:"healthyCount"`
	PlagueCount  int           `json:"plagueCount"`
	Notes        string        `json:"notes,omitempty"`
	Synced       bool          `json:"synced"`
}

// NewScanSession creates an ACTIVE session with zeroed counters
func NewScanSession(workerID, workerName, zoneID, zoneName, cropID, cropName, modelVersion string) (*ScanSession, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, ErrEmptyWorker
	}
	if strings.TrimSpace(zoneID) == "" {
		return nil, ErrEmptyZone
	}
	if strings.TrimSpace(cropID) == "" {
		return nil, ErrEmptyCrop
	}

	return &ScanSession{
		ID:           uuid.New().String(),
		WorkerID:     workerID,
		WorkerName:   workerName,
		ZoneID:       zoneID,
		ZoneName:     zoneName,
		CropID:       cropID,
		CropName:     cropName,
		ModelVersion: modelVersion,
		StartedAt:    time.Now().UTC().UnixMilli(),
		Status:       StatusActive,
	}, nil
}

// Finish transitions the session to COMPLETED and stamps FinishedAt
func (s *ScanSession) Finish(notes string) error {
	if s.Status != StatusActive {
		return ErrSessionNotActive
	}
	now := time.Now().UTC().UnixMilli()
	s.Status = StatusCompleted
	s.FinishedAt = &now
	if notes != "" {
		s.Notes = notes
	}
	s.Synced = false
	return nil
}

// Cancel transitions the session to CANCELLED and stamps FinishedAt
func (s *ScanSession) Cancel() error {
	if s.Status != StatusActive {
		return ErrSessionNotActive
	}
	now := time.Now().UTC().UnixMilli()
	s.Status = StatusCancelled
	s.FinishedAt = &now
	s.Synced = false
	return nil
}

// Errors
type SessionError struct {
	Message string
}

func (e SessionError) Error() string {
	return e.Message
}

var (
	ErrEmptyWorker       = SessionError{"worker id cannot be empty"}
	ErrEmptyZone         = SessionError{"zone id cannot be empty"}
	ErrEmptyCrop         = SessionError{"crop id cannot be empty"}
	ErrUnknownStatus     = SessionError{"unknown session status"}
	ErrSessionNotFound   = SessionError{"session not found"}
	ErrSessionNotActive  = SessionError{"session is not active"}
	ErrActiveSessionOpen = SessionError{"another session is still active"}
)
