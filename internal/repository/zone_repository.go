package repository

import (
	"context"
	"database/sql"

	"github.com/cropcare/fieldsync/internal/models"
)

// ZoneRepository handles the local zone/crop reference cache
type ZoneRepository struct {
	db *sql.DB
}

// NewZoneRepository creates a new ZoneRepository
func NewZoneRepository(db *sql.DB) *ZoneRepository {
	return &ZoneRepository{db: db}
}

// GetZones retrieves all cached zones
func (r *ZoneRepository) GetZones(ctx context.Context) ([]*models.Zone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, COALESCE(description, ''), synced FROM zones ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []*models.Zone
	for rows.Next() {
		var z models.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Description, &z.Synced); err != nil {
			return nil, err
		}
		zones = append(zones, &z)
	}
	return zones, rows.Err()
}

// GetCropsByZone retrieves the cached crops of a zone
func (r *ZoneRepository) GetCropsByZone(ctx context.Context, zoneID string) ([]*models.Crop, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, zone_id, name, COALESCE(variety, ''), synced FROM crops WHERE zone_id = ? ORDER BY name`, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crops []*models.Crop
	for rows.Next() {
		var c models.Crop
		if err := rows.Scan(&c.ID, &c.ZoneID, &c.Name, &c.Variety, &c.Synced); err != nil {
			return nil, err
		}
		crops = append(crops, &c)
	}
	return crops, rows.Err()
}

// UpsertZone inserts or refreshes a cached zone
func (r *ZoneRepository) UpsertZone(ctx context.Context, zone *models.Zone) error {
	query := `INSERT INTO zones (id, name, description, synced) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			synced = excluded.synced`

	_, err := r.db.ExecContext(ctx, query, zone.ID, zone.Name, zone.Description, zone.Synced)
	return err
}

// UpsertCrop inserts or refreshes a cached crop
func (r *ZoneRepository) UpsertCrop(ctx context.Context, crop *models.Crop) error {
	query := `INSERT INTO crops (id, zone_id, name, variety, synced) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			zone_id = excluded.zone_id,
			name = excluded.name,
			variety = excluded.variety,
			synced = excluded.synced`

	_, err := r.db.ExecContext(ctx, query, crop.ID, crop.ZoneID, crop.Name, crop.Variety, crop.Synced)
	return err
}
