package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropcare/fieldsync/internal/models"
)

func (e *testEnv) newSessionService() *SessionService {
	return NewSessionService(e.sessionRepo, e.resultRepo, e.zoneRepo, e.gw, e.syncCtx)
}

func TestSessionService_StartSession(t *testing.T) {
	ctx := context.Background()

	t.Run("starts and immediately pushes when the backend is reachable", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v2.1.0")

		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, session.Status)
		assert.Equal(t, "w1", session.WorkerID)
		assert.Equal(t, "Maria", session.WorkerName)
		assert.True(t, session.Synced)

		stored, err := env.sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, stored.Synced)
	})

	t.Run("queues the session when the backend is down", func(t *testing.T) {
		env := newTestEnv(t)
		env.gw.createSessionErr = errors.New("no route to host")
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")

		require.NoError(t, err, "offline start must still succeed locally")
		assert.False(t, session.Synced)

		count, err := env.sessionRepo.CountUnsynced(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("resolves display names from the zone cache", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.zoneRepo.UpsertZone(ctx, &models.Zone{ID: "1", Name: "North Field"}))
		require.NoError(t, env.zoneRepo.UpsertCrop(ctx, &models.Crop{ID: "2", ZoneID: "1", Name: "Tomato"}))
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")

		require.NoError(t, err)
		assert.Equal(t, "North Field", session.ZoneName)
		assert.Equal(t, "Tomato", session.CropName)
	})

	t.Run("rejects a second active session", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		_, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)

		_, err = svc.StartSession(ctx, "1", "2", "v1")
		assert.ErrorIs(t, err, models.ErrActiveSessionOpen)
	})
}

func TestSessionService_RecordResult(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the result, bumps counters and pushes them", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)

		_, err = svc.RecordResult(ctx, session.ID, models.RecordResultRequest{
			PhotoPath: "/p/1.jpg", Classification: "healthy", Confidence: 0.97,
		})
		require.NoError(t, err)
		_, err = svc.RecordResult(ctx, session.ID, models.RecordResultRequest{
			PhotoPath: "/p/2.jpg", Classification: "early_blight", Confidence: 0.88, HasPlague: true,
		})
		require.NoError(t, err)

		stored, err := env.sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.TotalScans)
		assert.Equal(t, 1, stored.HealthyCount)
		assert.Equal(t, 1, stored.PlagueCount)
		assert.True(t, stored.Synced, "the counter push keeps a known session in sync")

		assert.EqualValues(t, 2, env.gw.updateCalls.Load())
		env.gw.mu.Lock()
		lastUpdate := env.gw.lastUpdate
		env.gw.mu.Unlock()
		assert.Equal(t, 2, lastUpdate.TotalScans)
		assert.Equal(t, 1, lastUpdate.PlagueCount)

		results, err := svc.ResultsBySession(ctx, session.ID)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("a failed counter push leaves the session queued", func(t *testing.T) {
		env := newTestEnv(t)
		env.gw.updateErr = errors.New("timeout")
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)

		_, err = svc.RecordResult(ctx, session.ID, models.RecordResultRequest{
			Classification: "rust", Confidence: 0.7, HasPlague: true,
		})
		require.NoError(t, err)

		stored, err := env.sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.False(t, stored.Synced, "new results mark the session dirty")
	})

	t.Run("skips the counter push for a never-synced session", func(t *testing.T) {
		env := newTestEnv(t)
		env.gw.createSessionErr = errors.New("offline")
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)

		_, err = svc.RecordResult(ctx, session.ID, models.RecordResultRequest{
			Classification: "rust", Confidence: 0.7, HasPlague: true,
		})
		require.NoError(t, err)
		assert.Zero(t, env.gw.updateCalls.Load(), "the sync pass delivers session and results together")
	})

	t.Run("rejects recording into an unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		_, err := svc.RecordResult(ctx, "missing", models.RecordResultRequest{Classification: "rust", Confidence: 0.5})
		assert.ErrorIs(t, err, models.ErrSessionNotFound)
	})

	t.Run("rejects recording into a finished session", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)
		_, err = svc.FinishSession(ctx, session.ID, "")
		require.NoError(t, err)

		_, err = svc.RecordResult(ctx, session.ID, models.RecordResultRequest{Classification: "rust", Confidence: 0.5})
		assert.ErrorIs(t, err, models.ErrSessionNotActive)
	})

	t.Run("propagates result validation errors", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)

		_, err = svc.RecordResult(ctx, session.ID, models.RecordResultRequest{Classification: "rust", Confidence: 1.5})
		assert.ErrorIs(t, err, models.ErrInvalidConfidence)
	})
}

func TestSessionService_FinishSession(t *testing.T) {
	ctx := context.Background()

	t.Run("completes the session and pushes the finish action", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)
		require.True(t, session.Synced)

		finished, err := svc.FinishSession(ctx, session.ID, "light pressure")

		require.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, finished.Status)
		assert.Equal(t, "light pressure", finished.Notes)
		assert.EqualValues(t, 1, env.gw.finishCalls.Load())
		assert.True(t, finished.Synced, "a delivered finish needs no re-send")

		stored, err := env.sessionRepo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.True(t, stored.Synced)

		count, err := env.sessionRepo.CountUnsynced(ctx)
		require.NoError(t, err)
		assert.Zero(t, count, "the next batch must not re-send the finished session")
	})

	t.Run("skips the push for a never-synced session", func(t *testing.T) {
		env := newTestEnv(t)
		env.gw.createSessionErr = errors.New("offline")
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)

		_, err = svc.FinishSession(ctx, session.ID, "")
		require.NoError(t, err)
		assert.Zero(t, env.gw.finishCalls.Load(), "the sync pass will create and finish it in one batch")
	})

	t.Run("tolerates a failing finish push", func(t *testing.T) {
		env := newTestEnv(t)
		env.gw.finishErr = errors.New("timeout")
		svc := env.newSessionService()

		session, err := svc.StartSession(ctx, "1", "2", "v1")
		require.NoError(t, err)

		finished, err := svc.FinishSession(ctx, session.ID, "")
		require.NoError(t, err)
		assert.False(t, finished.Synced, "the finished state stays queued for the next pass")
	})

	t.Run("errors for an unknown session", func(t *testing.T) {
		env := newTestEnv(t)
		svc := env.newSessionService()

		_, err := svc.FinishSession(ctx, "missing", "")
		assert.ErrorIs(t, err, models.ErrSessionNotFound)
	})
}

func TestSessionService_CancelSession(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.newSessionService()

	session, err := svc.StartSession(ctx, "1", "2", "v1")
	require.NoError(t, err)

	cancelled, err := svc.CancelSession(ctx, session.ID)

	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.EqualValues(t, 1, env.gw.cancelCalls.Load())
	assert.True(t, cancelled.Synced, "a delivered cancel needs no re-send")

	_, err = svc.CancelSession(ctx, session.ID)
	assert.ErrorIs(t, err, models.ErrSessionNotActive)
}

func TestSessionService_LinkReport(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.newSessionService()

	session, err := svc.StartSession(ctx, "1", "2", "v1")
	require.NoError(t, err)

	result, err := svc.RecordResult(ctx, session.ID, models.RecordResultRequest{
		Classification: "early_blight", Confidence: 0.9, HasPlague: true,
	})
	require.NoError(t, err)

	t.Run("attaches the report and queues a re-sync", func(t *testing.T) {
		linked, err := svc.LinkReport(ctx, result.ID, "42")
		require.NoError(t, err)
		require.NotNil(t, linked.ReportID)
		assert.Equal(t, "42", *linked.ReportID)
		assert.False(t, linked.Synced)
	})

	t.Run("errors for an unknown result", func(t *testing.T) {
		_, err := svc.LinkReport(ctx, "missing", "42")
		assert.ErrorIs(t, err, models.ErrResultNotFound)
	})
}
