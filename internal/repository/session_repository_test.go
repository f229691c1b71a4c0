package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropcare/fieldsync/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)

	// One connection so every statement sees the same in-memory database
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSession(t *testing.T) *models.ScanSession {
	t.Helper()
	session, err := models.NewScanSession("w1", "Maria", "z1", "North Field", "c1", "Tomato", "v2.1.0")
	require.NoError(t, err)
	return session
}

func TestSessionRepository_AddAndGet(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	session := newTestSession(t)
	require.NoError(t, repo.Add(ctx, session))

	t.Run("round trips all fields", func(t *testing.T) {
		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, session, got)
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		got, err := repo.GetByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestSessionRepository_GetActive(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	t.Run("returns nil when no session is active", func(t *testing.T) {
		got, err := repo.GetActive(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("returns the active session", func(t *testing.T) {
		finished := newTestSession(t)
		require.NoError(t, finished.Finish(""))
		require.NoError(t, repo.Add(ctx, finished))

		active := newTestSession(t)
		require.NoError(t, repo.Add(ctx, active))

		got, err := repo.GetActive(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, active.ID, got.ID)
	})
}

func TestSessionRepository_GetUnsynced(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	synced := newTestSession(t)
	synced.Synced = true
	require.NoError(t, repo.Add(ctx, synced))

	first := newTestSession(t)
	first.StartedAt = 1000
	require.NoError(t, repo.Add(ctx, first))

	second := newTestSession(t)
	require.NoError(t, second.Finish("done"))
	second.StartedAt = 2000
	require.NoError(t, repo.Add(ctx, second))

	t.Run("returns only unsynced rows oldest first", func(t *testing.T) {
		got, err := repo.GetUnsynced(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, second.ID, got[1].ID)
	})

	t.Run("counts unsynced rows", func(t *testing.T) {
		count, err := repo.CountUnsynced(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("marking synced removes the row from the queue", func(t *testing.T) {
		require.NoError(t, repo.MarkSynced(ctx, first.ID))

		count, err := repo.CountUnsynced(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestSessionRepository_Update(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	session := newTestSession(t)
	require.NoError(t, repo.Add(ctx, session))

	t.Run("persists lifecycle transitions", func(t *testing.T) {
		require.NoError(t, session.Finish("rust on row 3"))
		require.NoError(t, repo.Update(ctx, session))

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, got.Status)
		require.NotNil(t, got.FinishedAt)
		assert.Equal(t, *session.FinishedAt, *got.FinishedAt)
		assert.Equal(t, "rust on row 3", got.Notes)
		assert.False(t, got.Synced)
	})

	t.Run("errors for an unknown session", func(t *testing.T) {
		ghost := newTestSession(t)
		assert.ErrorIs(t, repo.Update(ctx, ghost), models.ErrSessionNotFound)
	})
}

func TestSessionRepository_IncrementCounts(t *testing.T) {
	repo := NewSessionRepository(newTestDB(t))
	ctx := context.Background()

	session := newTestSession(t)
	session.Synced = true
	require.NoError(t, repo.Add(ctx, session))

	require.NoError(t, repo.IncrementCounts(ctx, session.ID, false))
	require.NoError(t, repo.IncrementCounts(ctx, session.ID, true))
	require.NoError(t, repo.IncrementCounts(ctx, session.ID, true))

	got, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalScans)
	assert.Equal(t, 1, got.HealthyCount)
	assert.Equal(t, 2, got.PlagueCount)
	assert.False(t, got.Synced, "counter changes must queue the session for re-sync")

	assert.ErrorIs(t, repo.IncrementCounts(ctx, "missing", true), models.ErrSessionNotFound)
}

func TestSessionRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	sessionRepo := NewSessionRepository(db)
	resultRepo := NewResultRepository(db)
	ctx := context.Background()

	session := newTestSession(t)
	require.NoError(t, sessionRepo.Add(ctx, session))

	result, err := models.NewScanResult(session.ID, "/p.jpg", "healthy", 0.9, false)
	require.NoError(t, err)
	require.NoError(t, resultRepo.Add(ctx, result))

	deleted, err := sessionRepo.Delete(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	t.Run("results cascade with their session", func(t *testing.T) {
		got, err := resultRepo.GetByID(ctx, result.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("deleting again reports not found", func(t *testing.T) {
		deleted, err := sessionRepo.Delete(ctx, session.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
