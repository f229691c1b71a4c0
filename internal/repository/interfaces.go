package repository

import (
	"context"

	"github.com/cropcare/fieldsync/internal/models"
)

// SessionRepo defines the interface for scan session persistence
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*models.ScanSession, error)
	GetActive(ctx context.Context) (*models.ScanSession, error)
	GetAll(ctx context.Context) ([]*models.ScanSession, error)
	GetByStatus(ctx context.Context, status models.SessionStatus) ([]*models.ScanSession, error)
	GetUnsynced(ctx context.Context) ([]*models.ScanSession, error)
	CountUnsynced(ctx context.Context) (int, error)
	Add(ctx context.Context, session *models.ScanSession) error
	Update(ctx context.Context, session *models.ScanSession) error
	IncrementCounts(ctx context.Context, id string, plague bool) error
	MarkSynced(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) (bool, error)
}

// ResultRepo defines the interface for scan result persistence
type ResultRepo interface {
	GetByID(ctx context.Context, id string) (*models.ScanResult, error)
	GetBySession(ctx context.Context, sessionID string) ([]*models.ScanResult, error)
	GetUnsynced(ctx context.Context) ([]*models.ScanResult, error)
	GetUnsyncedBySession(ctx context.Context, sessionID string) ([]*models.ScanResult, error)
	CountUnsynced(ctx context.Context) (int, error)
	Add(ctx context.Context, result *models.ScanResult) error
	Update(ctx context.Context, result *models.ScanResult) error
	MarkSynced(ctx context.Context, id string) error
}

// ZoneRepo defines the interface for the local zone/crop reference cache
type ZoneRepo interface {
	GetZones(ctx context.Context) ([]*models.Zone, error)
	GetCropsByZone(ctx context.Context, zoneID string) ([]*models.Crop, error)
	UpsertZone(ctx context.Context, zone *models.Zone) error
	UpsertCrop(ctx context.Context, crop *models.Crop) error
}
