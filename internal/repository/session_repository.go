package repository

import (
	"context"
	"database/sql"

	"github.com/cropcare/fieldsync/internal/models"
)

// SessionRepository handles scan session persistence
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, worker_id, worker_name, zone_id, zone_name, crop_id, crop_name,
	model_version, started_at, finished_at, status, total_scans, healthy_count, plague_count, notes, synced`

func scanSessionRow(row interface{ Scan(...any) error }) (*models.ScanSession, error) {
	var s models.ScanSession
	var finishedAt sql.NullInt64
	var status string

	err := row.Scan(
		&s.ID,
		&s.WorkerID,
		&s.WorkerName,
		&s.ZoneID,
		&s.ZoneName,
		&s.CropID,
		&s.CropName,
		&s.ModelVersion,
		&s.StartedAt,
		&finishedAt,
		&status,
		&s.TotalScans,
		&s.HealthyCount,
		&s.PlagueCount,
		&s.Notes,
		&s.Synced,
	)
	if err != nil {
		return nil, err
	}

	if finishedAt.Valid {
		s.FinishedAt = &finishedAt.Int64
	}
	s.Status = models.SessionStatus(status)
	return &s, nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.ScanSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM scan_sessions WHERE id = ?`

	session, err := scanSessionRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetActive retrieves the single ACTIVE session, if any
func (r *SessionRepository) GetActive(ctx context.Context) (*models.ScanSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM scan_sessions WHERE status = ? LIMIT 1`

	session, err := scanSessionRow(r.db.QueryRowContext(ctx, query, string(models.StatusActive)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetAll retrieves all sessions, most recent first
func (r *SessionRepository) GetAll(ctx context.Context) ([]*models.ScanSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM scan_sessions ORDER BY started_at DESC`
	return r.querySessions(ctx, query)
}

// GetByStatus retrieves sessions in the given lifecycle state
func (r *SessionRepository) GetByStatus(ctx context.Context, status models.SessionStatus) ([]*models.ScanSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM scan_sessions WHERE status = ? ORDER BY started_at DESC`
	return r.querySessions(ctx, query, string(status))
}

// GetUnsynced retrieves sessions the backend has not acknowledged yet
func (r *SessionRepository) GetUnsynced(ctx context.Context) ([]*models.ScanSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM scan_sessions WHERE synced = 0 ORDER BY started_at`
	return r.querySessions(ctx, query)
}

// CountUnsynced returns the number of unsynced sessions
func (r *SessionRepository) CountUnsynced(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scan_sessions WHERE synced = 0`).Scan(&count)
	return count, err
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]*models.ScanSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.ScanSession
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// Add inserts a new session
func (r *SessionRepository) Add(ctx context.Context, session *models.ScanSession) error {
	query := `
		INSERT INTO scan_sessions (id, worker_id, worker_name, zone_id, zone_name, crop_id, crop_name,
			model_version, started_at, finished_at, status, total_scans, healthy_count, plague_count, notes, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.WorkerID,
		session.WorkerName,
		session.ZoneID,
		session.ZoneName,
		session.CropID,
		session.CropName,
		session.ModelVersion,
		session.StartedAt,
		nullableInt64(session.FinishedAt),
		string(session.Status),
		session.TotalScans,
		session.HealthyCount,
		session.PlagueCount,
		session.Notes,
		session.Synced,
	)
	return err
}

// Update rewrites a session's mutable state. The ID is immutable.
func (r *SessionRepository) Update(ctx context.Context, session *models.ScanSession) error {
	query := `
		UPDATE scan_sessions
		SET finished_at = ?, status = ?, total_scans = ?, healthy_count = ?, plague_count = ?,
			notes = ?, synced = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query,
		nullableInt64(session.FinishedAt),
		string(session.Status),
		session.TotalScans,
		session.HealthyCount,
		session.PlagueCount,
		session.Notes,
		session.Synced,
		session.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// IncrementCounts bumps total_scans and the healthy or plague counter in one
// statement, and marks the session dirty for re-sync
func (r *SessionRepository) IncrementCounts(ctx context.Context, id string, plague bool) error {
	counter := "healthy_count"
	if plague {
		counter = "plague_count"
	}

	query := `UPDATE scan_sessions SET total_scans = total_scans + 1, ` + counter + ` = ` + counter + ` + 1, synced = 0 WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

// MarkSynced flags a session as acknowledged by the backend
func (r *SessionRepository) MarkSynced(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE scan_sessions SET synced = 1 WHERE id = ?`, id)
	return err
}

// Delete removes a session; results cascade
func (r *SessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scan_sessions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
