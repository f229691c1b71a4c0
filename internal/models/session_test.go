package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanSession(t *testing.T) {
	t.Run("creates active session with valid parameters", func(t *testing.T) {
		session, err := NewScanSession("w1", "Maria", "z1", "North Field", "c1", "Tomato", "v2.1.0")

		require.NoError(t, err)
		assert.NotEmpty(t, session.ID)
		assert.Equal(t, "w1", session.WorkerID)
		assert.Equal(t, "Maria", session.WorkerName)
		assert.Equal(t, "z1", session.ZoneID)
		assert.Equal(t, "North Field", session.ZoneName)
		assert.Equal(t, "c1", session.CropID)
		assert.Equal(t, "Tomato", session.CropName)
		assert.Equal(t, "v2.1.0", session.ModelVersion)
		assert.Equal(t, StatusActive, session.Status)
		assert.Zero(t, session.TotalScans)
		assert.Zero(t, session.HealthyCount)
		assert.Zero(t, session.PlagueCount)
		assert.Nil(t, session.FinishedAt)
		assert.False(t, session.Synced)
		assert.InDelta(t, time.Now().UTC().UnixMilli(), session.StartedAt, 5000)
	})

	t.Run("rejects empty worker", func(t *testing.T) {
		_, err := NewScanSession("", "Maria", "z1", "", "c1", "", "v1")
		assert.ErrorIs(t, err, ErrEmptyWorker)
	})

	t.Run("rejects empty zone", func(t *testing.T) {
		_, err := NewScanSession("w1", "Maria", " ", "", "c1", "", "v1")
		assert.ErrorIs(t, err, ErrEmptyZone)
	})

	t.Run("rejects empty crop", func(t *testing.T) {
		_, err := NewScanSession("w1", "Maria", "z1", "", "", "", "v1")
		assert.ErrorIs(t, err, ErrEmptyCrop)
	})

	t.Run("generates unique IDs", func(t *testing.T) {
		s1, err := NewScanSession("w1", "", "z1", "", "c1", "", "v1")
		require.NoError(t, err)
		s2, err := NewScanSession("w1", "", "z1", "", "c1", "", "v1")
		require.NoError(t, err)

		assert.NotEqual(t, s1.ID, s2.ID)
	})
}

func TestParseSessionStatus(t *testing.T) {
	t.Run("accepts known statuses", func(t *testing.T) {
		for input, want := range map[string]SessionStatus{
			"ACTIVE":    StatusActive,
			"COMPLETED": StatusCompleted,
			"CANCELLED": StatusCancelled,
		} {
			got, err := ParseSessionStatus(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("normalizes case and whitespace", func(t *testing.T) {
		got, err := ParseSessionStatus("  completed ")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, got)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := ParseSessionStatus("PAUSED")
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})

	t.Run("rejects empty status", func(t *testing.T) {
		_, err := ParseSessionStatus("")
		assert.ErrorIs(t, err, ErrUnknownStatus)
	})
}

func TestSessionStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusActive.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
}

func TestScanSessionFinish(t *testing.T) {
	newActive := func(t *testing.T) *ScanSession {
		s, err := NewScanSession("w1", "", "z1", "", "c1", "", "v1")
		require.NoError(t, err)
		return s
	}

	t.Run("completes an active session", func(t *testing.T) {
		s := newActive(t)
		s.Synced = true

		err := s.Finish("low pressure today")

		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, s.Status)
		require.NotNil(t, s.FinishedAt)
		assert.GreaterOrEqual(t, *s.FinishedAt, s.StartedAt)
		assert.Equal(t, "low pressure today", s.Notes)
		assert.False(t, s.Synced, "finishing must queue the session for sync")
	})

	t.Run("keeps existing notes when finish notes are empty", func(t *testing.T) {
		s := newActive(t)
		s.Notes = "scouting row 4"

		require.NoError(t, s.Finish(""))
		assert.Equal(t, "scouting row 4", s.Notes)
	})

	t.Run("rejects finishing a completed session", func(t *testing.T) {
		s := newActive(t)
		require.NoError(t, s.Finish(""))

		assert.ErrorIs(t, s.Finish(""), ErrSessionNotActive)
	})

	t.Run("rejects finishing a cancelled session", func(t *testing.T) {
		s := newActive(t)
		require.NoError(t, s.Cancel())

		assert.ErrorIs(t, s.Finish(""), ErrSessionNotActive)
	})
}

func TestScanSessionCancel(t *testing.T) {
	t.Run("cancels an active session", func(t *testing.T) {
		s, err := NewScanSession("w1", "", "z1", "", "c1", "", "v1")
		require.NoError(t, err)
		s.Synced = true

		require.NoError(t, s.Cancel())
		assert.Equal(t, StatusCancelled, s.Status)
		assert.NotNil(t, s.FinishedAt)
		assert.False(t, s.Synced)
	})

	t.Run("rejects cancelling twice", func(t *testing.T) {
		s, err := NewScanSession("w1", "", "z1", "", "c1", "", "v1")
		require.NoError(t, err)

		require.NoError(t, s.Cancel())
		assert.ErrorIs(t, s.Cancel(), ErrSessionNotActive)
	})
}

func TestNewScanResult(t *testing.T) {
	t.Run("creates result with valid parameters", func(t *testing.T) {
		result, err := NewScanResult("s1", "/photos/leaf_001.jpg", "early_blight", 0.93, true)

		require.NoError(t, err)
		assert.NotEmpty(t, result.ID)
		assert.Equal(t, "s1", result.SessionID)
		assert.Equal(t, "/photos/leaf_001.jpg", result.PhotoPath)
		assert.Equal(t, "early_blight", result.Classification)
		assert.Equal(t, 0.93, result.Confidence)
		assert.True(t, result.HasPlague)
		assert.Nil(t, result.ReportID)
		assert.False(t, result.Synced)
	})

	t.Run("rejects empty session id", func(t *testing.T) {
		_, err := NewScanResult("", "p", "healthy", 0.5, false)
		assert.ErrorIs(t, err, ErrEmptySession)
	})

	t.Run("rejects empty classification", func(t *testing.T) {
		_, err := NewScanResult("s1", "p", "", 0.5, false)
		assert.ErrorIs(t, err, ErrEmptyClassification)
	})

	t.Run("rejects confidence out of range", func(t *testing.T) {
		_, err := NewScanResult("s1", "p", "healthy", 1.2, false)
		assert.ErrorIs(t, err, ErrInvalidConfidence)

		_, err = NewScanResult("s1", "p", "healthy", -0.1, false)
		assert.ErrorIs(t, err, ErrInvalidConfidence)
	})

	t.Run("accepts boundary confidences", func(t *testing.T) {
		_, err := NewScanResult("s1", "p", "healthy", 0, false)
		assert.NoError(t, err)

		_, err = NewScanResult("s1", "p", "healthy", 1, false)
		assert.NoError(t, err)
	})
}

func TestScanResultLinkReport(t *testing.T) {
	result, err := NewScanResult("s1", "p", "rust", 0.8, true)
	require.NoError(t, err)
	result.Synced = true

	result.LinkReport("42")

	require.NotNil(t, result.ReportID)
	assert.Equal(t, "42", *result.ReportID)
	assert.False(t, result.Synced, "linking a report must queue the result for re-sync")
}
