package repository

import (
	"context"
	"database/sql"

	"github.com/cropcare/fieldsync/internal/models"
)

// ResultRepository handles scan result persistence
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository creates a new ResultRepository
func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, session_id, photo_path, classification, confidence, has_plague, scanned_at, report_id, synced`

func scanResultRow(row interface{ Scan(...any) error }) (*models.ScanResult, error) {
	var res models.ScanResult
	var reportID sql.NullString

	err := row.Scan(
		&res.ID,
		&res.SessionID,
		&res.PhotoPath,
		&res.Classification,
		&res.Confidence,
		&res.HasPlague,
		&res.ScannedAt,
		&reportID,
		&res.Synced,
	)
	if err != nil {
		return nil, err
	}

	if reportID.Valid {
		res.ReportID = &reportID.String
	}
	return &res, nil
}

// GetByID retrieves a result by its ID
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*models.ScanResult, error) {
	query := `SELECT ` + resultColumns + ` FROM scan_results WHERE id = ?`

	result, err := scanResultRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetBySession retrieves all results belonging to a session
func (r *ResultRepository) GetBySession(ctx context.Context, sessionID string) ([]*models.ScanResult, error) {
	query := `SELECT ` + resultColumns + ` FROM scan_results WHERE session_id = ? ORDER BY scanned_at`
	return r.queryResults(ctx, query, sessionID)
}

// GetUnsynced retrieves results the backend has not acknowledged yet
func (r *ResultRepository) GetUnsynced(ctx context.Context) ([]*models.ScanResult, error) {
	query := `SELECT ` + resultColumns + ` FROM scan_results WHERE synced = 0 ORDER BY scanned_at`
	return r.queryResults(ctx, query)
}

// GetUnsyncedBySession retrieves a session's unsynced results
func (r *ResultRepository) GetUnsyncedBySession(ctx context.Context, sessionID string) ([]*models.ScanResult, error) {
	query := `SELECT ` + resultColumns + ` FROM scan_results WHERE session_id = ? AND synced = 0 ORDER BY scanned_at`
	return r.queryResults(ctx, query, sessionID)
}

// CountUnsynced returns the number of unsynced results
func (r *ResultRepository) CountUnsynced(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_results WHERE synced = 0`).Scan(&count)
	return count, err
}

func (r *ResultRepository) queryResults(ctx context.Context, query string, args ...any) ([]*models.ScanResult, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ScanResult
	for rows.Next() {
		result, err := scanResultRow(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Add inserts a new result. The owning session must exist.
func (r *ResultRepository) Add(ctx context.Context, result *models.ScanResult) error {
	query := `
		INSERT INTO scan_results (id, session_id, photo_path, classification, confidence, has_plague, scanned_at, report_id, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.SessionID,
		result.PhotoPath,
		result.Classification,
		result.Confidence,
		result.HasPlague,
		result.ScannedAt,
		nullableString(result.ReportID),
		result.Synced,
	)
	return err
}

// Update rewrites a result's mutable state
func (r *ResultRepository) Update(ctx context.Context, result *models.ScanResult) error {
	query := `UPDATE scan_results SET photo_path = ?, report_id = ?, synced = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query,
		result.PhotoPath,
		nullableString(result.ReportID),
		result.Synced,
		result.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrResultNotFound
	}
	return nil
}

// MarkSynced flags a result as acknowledged by the backend
func (r *ResultRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scan_results SET synced = 1 WHERE id = ?`, id)
	return err
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
