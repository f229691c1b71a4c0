package services

import (
	"context"
	"fmt"

	"github.com/cropcare/fieldsync/internal/gateway"
	"github.com/cropcare/fieldsync/internal/mappers"
	"github.com/cropcare/fieldsync/internal/models"
	"github.com/cropcare/fieldsync/internal/observability"
	"github.com/cropcare/fieldsync/internal/repository"
)

// SessionService owns the local lifecycle of scan sessions and results.
// Every operation writes locally first; backend pushes are best-effort and
// never block the caller — the sync pass picks up whatever could not be
// delivered immediately.
type SessionService struct {
	sessionRepo repository.SessionRepo
	resultRepo  repository.ResultRepo
	zoneRepo    repository.ZoneRepo
	gw          gateway.ScannerGateway
	syncCtx     models.SyncContext
}

// NewSessionService creates a new SessionService
func NewSessionService(
	sessionRepo repository.SessionRepo,
	resultRepo repository.ResultRepo,
	zoneRepo repository.ZoneRepo,
	gw gateway.ScannerGateway,
	syncCtx models.SyncContext,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
		zoneRepo:    zoneRepo,
		gw:          gw,
		syncCtx:     syncCtx,
	}
}

// StartSession creates a new ACTIVE session. Exactly one ACTIVE session may
// exist locally at a time.
func (s *SessionService) StartSession(ctx context.Context, zoneID, cropID, modelVersion string) (*models.ScanSession, error) {
	active, err := s.sessionRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking active session: %w", err)
	}
	if active != nil {
		return nil, models.ErrActiveSessionOpen
	}

	zoneName, cropName := s.lookupNames(ctx, zoneID, cropID)

	session, err := models.NewScanSession(
		s.syncCtx.WorkerID, s.syncCtx.WorkerName,
		zoneID, zoneName, cropID, cropName, modelVersion,
	)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Add(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	logger := observability.WithContext(ctx).WithField("session_id", session.ID)
	logger.Info("Session started")

	// Opportunistic push; a failure leaves the row for the next sync pass
	if _, err := s.gw.CreateSession(ctx, mappers.SessionToCreateDTO(session, s.syncCtx.CompanyID)); err == nil {
		session.Synced = true
		if err := s.sessionRepo.MarkSynced(ctx, session.ID); err != nil {
			logger.Warnf("Failed to mark session synced: %v", err)
		}
	} else {
		logger.Warnf("Immediate session push failed, queued for sync: %v", err)
	}

	return session, nil
}

// RecordResult stores one classified photo and bumps the owning session's
// counters. The session must be ACTIVE.
func (s *SessionService) RecordResult(ctx context.Context, sessionID string, req models.RecordResultRequest) (*models.ScanResult, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}
	if session.Status != models.StatusActive {
		return nil, models.ErrSessionNotActive
	}

	result, err := models.NewScanResult(sessionID, req.PhotoPath, req.Classification, req.Confidence, req.HasPlague)
	if err != nil {
		return nil, err
	}

	if err := s.resultRepo.Add(ctx, result); err != nil {
		return nil, fmt.Errorf("persisting result: %w", err)
	}
	if err := s.sessionRepo.IncrementCounts(ctx, sessionID, result.HasPlague); err != nil {
		return nil, fmt.Errorf("updating session counters: %w", err)
	}

	// The backend already knows this session; push the new counters right
	// away. The result itself rides the next sync pass.
	if session.Synced {
		session.TotalScans++
		if result.HasPlague {
			session.PlagueCount++
		} else {
			session.HealthyCount++
		}

		logger := observability.WithContext(ctx).WithField("session_id", sessionID)
		if _, err := s.gw.UpdateSession(ctx, sessionID, mappers.SessionToUpdateDTO(session)); err == nil {
			if err := s.sessionRepo.MarkSynced(ctx, sessionID); err != nil {
				logger.Warnf("Failed to mark session synced: %v", err)
			}
		} else {
			logger.Warnf("Immediate counter push failed, queued for sync: %v", err)
		}
	}

	return result, nil
}

// FinishSession completes the ACTIVE session with optional notes
func (s *SessionService) FinishSession(ctx context.Context, sessionID, notes string) (*models.ScanSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}

	wasSynced := session.Synced
	if err := session.Finish(notes); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	logger := observability.WithContext(ctx).WithField("session_id", sessionID)
	logger.Info("Session finished")

	if wasSynced {
		if err := s.gw.FinishSession(ctx, sessionID, notes); err != nil {
			logger.Warnf("Immediate finish push failed, queued for sync: %v", err)
		} else {
			session.Synced = true
			if err := s.sessionRepo.MarkSynced(ctx, sessionID); err != nil {
				logger.Warnf("Failed to mark session synced: %v", err)
			}
		}
	}

	return session, nil
}

// CancelSession cancels the ACTIVE session
func (s *SessionService) CancelSession(ctx context.Context, sessionID string) (*models.ScanSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		return nil, models.ErrSessionNotFound
	}

	wasSynced := session.Synced
	if err := session.Cancel(); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	logger := observability.WithContext(ctx).WithField("session_id", sessionID)
	logger.Info("Session cancelled")

	if wasSynced {
		if err := s.gw.CancelSession(ctx, sessionID); err != nil {
			logger.Warnf("Immediate cancel push failed, queued for sync: %v", err)
		} else {
			session.Synced = true
			if err := s.sessionRepo.MarkSynced(ctx, sessionID); err != nil {
				logger.Warnf("Failed to mark session synced: %v", err)
			}
		}
	}

	return session, nil
}

// GetSession retrieves a session by ID
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.ScanSession, error) {
	return s.sessionRepo.GetByID(ctx, sessionID)
}

// GetActiveSession retrieves the ACTIVE session, if any
func (s *SessionService) GetActiveSession(ctx context.Context) (*models.ScanSession, error) {
	return s.sessionRepo.GetActive(ctx)
}

// ListSessions retrieves all sessions, most recent first
func (s *SessionService) ListSessions(ctx context.Context) ([]*models.ScanSession, error) {
	return s.sessionRepo.GetAll(ctx)
}

// ResultsBySession retrieves a session's results
func (s *SessionService) ResultsBySession(ctx context.Context, sessionID string) ([]*models.ScanResult, error) {
	return s.resultRepo.GetBySession(ctx, sessionID)
}

// LinkReport attaches a filed report to a result and queues it for re-sync
func (s *SessionService) LinkReport(ctx context.Context, resultID, reportID string) (*models.ScanResult, error) {
	result, err := s.resultRepo.GetByID(ctx, resultID)
	if err != nil {
		return nil, fmt.Errorf("loading result: %w", err)
	}
	if result == nil {
		return nil, models.ErrResultNotFound
	}

	result.LinkReport(reportID)
	if err := s.resultRepo.Update(ctx, result); err != nil {
		return nil, fmt.Errorf("persisting result: %w", err)
	}
	return result, nil
}

// lookupNames resolves zone/crop display names from the local cache. Missing
// reference data degrades to empty names; it never blocks starting a session.
func (s *SessionService) lookupNames(ctx context.Context, zoneID, cropID string) (string, string) {
	var zoneName, cropName string

	zones, err := s.zoneRepo.GetZones(ctx)
	if err != nil {
		return "", ""
	}
	for _, z := range zones {
		if z.ID == zoneID {
			zoneName = z.Name
			break
		}
	}

	crops, err := s.zoneRepo.GetCropsByZone(ctx, zoneID)
	if err != nil {
		return zoneName, ""
	}
	for _, c := range crops {
		if c.ID == cropID {
			cropName = c.Name
			break
		}
	}

	return zoneName, cropName
}
