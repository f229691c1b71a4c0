package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cropcare/fieldsync/internal/gateway"
	"github.com/cropcare/fieldsync/internal/mappers"
	"github.com/cropcare/fieldsync/internal/models"
	"github.com/cropcare/fieldsync/internal/observability"
	"github.com/cropcare/fieldsync/internal/repository"
)

// SyncSummary is the aggregate outcome of one sync pass. A stream is
// successful only when its batch was delivered and every item was accepted.
type SyncSummary struct {
	SessionsSuccess bool `json:"sessionsSuccess"`
	ResultsSuccess  bool `json:"resultsSuccess"`
	TotalSuccess    bool `json:"totalSuccess"`
	SessionsSynced  int  `json:"sessionsSynced"`
	ResultsSynced   int  `json:"resultsSynced"`
	ItemErrors      int  `json:"itemErrors"`
}

// SyncNotifier receives sync lifecycle events for UI push
type SyncNotifier interface {
	NotifySyncStarted()
	NotifySyncCompleted(summary SyncSummary)
}

// syncCall is one in-flight pass; late callers wait on done and share the
// summary instead of starting a competing pass over the same unsynced rows
type syncCall struct {
	done    chan struct{}
	summary SyncSummary
	err     error
}

// SyncService reconciles local unsynced state with the backend. It holds no
// durable state of its own: unsynced rows are the only queue.
type SyncService struct {
	sessionRepo repository.SessionRepo
	resultRepo  repository.ResultRepo
	zoneRepo    repository.ZoneRepo
	gw          gateway.ScannerGateway
	syncCtx     models.SyncContext
	metrics     *observability.SyncMetrics
	notifier    SyncNotifier

	mu         sync.Mutex
	inFlight   *syncCall
	lastSyncAt *time.Time
	lastSyncOK bool
}

// NewSyncService creates a new SyncService
func NewSyncService(
	sessionRepo repository.SessionRepo,
	resultRepo repository.ResultRepo,
	zoneRepo repository.ZoneRepo,
	gw gateway.ScannerGateway,
	syncCtx models.SyncContext,
) *SyncService {
	return &SyncService{
		sessionRepo: sessionRepo,
		resultRepo:  resultRepo,
		zoneRepo:    zoneRepo,
		gw:          gw,
		syncCtx:     syncCtx,
	}
}

// SetMetrics attaches sync metrics instruments
func (s *SyncService) SetMetrics(m *observability.SyncMetrics) {
	s.metrics = m
}

// SetNotifier attaches a sync progress notifier
func (s *SyncService) SetNotifier(n SyncNotifier) {
	s.notifier = n
}

// Synchronize runs one sync pass: the session stream and the result stream
// are submitted concurrently and joined into a summary. Only one pass is in
// flight at a time; overlapping callers coalesce onto the running pass and
// receive its outcome. The returned error is reserved for failures outside
// both stream guards — per-stream transport errors are folded into the
// summary instead.
func (s *SyncService) Synchronize(ctx context.Context) (SyncSummary, error) {
	s.mu.Lock()
	if call := s.inFlight; call != nil {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.summary, call.err
		case <-ctx.Done():
			return SyncSummary{}, ctx.Err()
		}
	}
	call := &syncCall{done: make(chan struct{})}
	s.inFlight = call
	s.mu.Unlock()

	call.summary, call.err = s.runPass(ctx)

	now := time.Now().UTC()
	s.mu.Lock()
	s.inFlight = nil
	s.lastSyncAt = &now
	s.lastSyncOK = call.err == nil && call.summary.TotalSuccess
	s.mu.Unlock()
	close(call.done)

	return call.summary, call.err
}

func (s *SyncService) runPass(ctx context.Context) (summary SyncSummary, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "SyncService", "Synchronize")
	defer span.End()

	// Last guard: nothing escaping the stream guards may crash the caller
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync pass failed: %v", r)
			observability.RecordError(span, err)
		}
	}()

	start := time.Now()
	logger := observability.WithContext(ctx)

	if s.notifier != nil {
		s.notifier.NotifySyncStarted()
	}

	var wg sync.WaitGroup
	var sessionOutcome, resultOutcome streamOutcome

	wg.Add(2)
	go func() {
		defer wg.Done()
		sessionOutcome = s.syncSessions(ctx)
	}()
	go func() {
		defer wg.Done()
		resultOutcome = s.syncResults(ctx)
	}()
	wg.Wait()

	summary = SyncSummary{
		SessionsSuccess: sessionOutcome.success,
		ResultsSuccess:  resultOutcome.success,
		TotalSuccess:    sessionOutcome.success && resultOutcome.success,
		SessionsSynced:  sessionOutcome.synced,
		ResultsSynced:   resultOutcome.synced,
		ItemErrors:      sessionOutcome.itemErrors + resultOutcome.itemErrors,
	}

	s.metrics.RecordPass(ctx, float64(time.Since(start).Milliseconds()), summary.TotalSuccess)

	if summary.TotalSuccess {
		logger.Infof("Sync pass complete: %d sessions, %d results", summary.SessionsSynced, summary.ResultsSynced)
		observability.SetSuccess(span)
	} else {
		// Partial progress is not a hard failure; unsynced rows stay queued
		logger.Warnf("Sync pass partial: sessions=%v results=%v itemErrors=%d",
			summary.SessionsSuccess, summary.ResultsSuccess, summary.ItemErrors)
	}

	if s.notifier != nil {
		s.notifier.NotifySyncCompleted(summary)
	}

	return summary, nil
}

type streamOutcome struct {
	success    bool
	synced     int
	itemErrors int
}

// syncSessions pushes all unsynced sessions as one batch, nesting each
// session's unsynced results, and applies the per-item response
func (s *SyncService) syncSessions(ctx context.Context) streamOutcome {
	logger := observability.WithContext(ctx)

	sessions, err := s.sessionRepo.GetUnsynced(ctx)
	if err != nil {
		logger.Errorf("Loading unsynced sessions: %v", err)
		return streamOutcome{}
	}
	if len(sessions) == 0 {
		return streamOutcome{success: true}
	}

	resultsBySession := make(map[string][]*models.ScanResult, len(sessions))
	for _, session := range sessions {
		results, err := s.resultRepo.GetUnsyncedBySession(ctx, session.ID)
		if err != nil {
			logger.Errorf("Loading unsynced results for session %s: %v", session.ID, err)
			return streamOutcome{}
		}
		resultsBySession[session.ID] = results
	}

	req := mappers.SessionsToSyncRequest(sessions, resultsBySession, s.syncCtx.CompanyID)

	resp, err := s.gw.SyncSessions(ctx, req)
	if err != nil {
		// Transport failure stays inside this stream
		logger.Warnf("Session batch sync failed: %v", err)
		return streamOutcome{}
	}

	outcome := streamOutcome{success: resp.TotalErrors == 0}
	for _, item := range resp.Synced {
		if item.SessionID == "" {
			continue
		}
		if err := s.sessionRepo.MarkSynced(ctx, item.SessionID); err != nil {
			logger.Errorf("Marking session %s synced: %v", item.SessionID, err)
			outcome.success = false
			continue
		}
		outcome.synced++
	}
	for _, itemErr := range resp.Errors {
		logger.Warnf("Session %s rejected by backend: %s", itemErr.SessionID, itemErr.Error)
		outcome.itemErrors++
	}

	s.metrics.RecordItems(ctx, "sessions", int64(outcome.synced), int64(outcome.itemErrors))
	return outcome
}

// syncResults pushes all unsynced results as one flat batch and applies the
// per-item response. Results sync independently of their parent session; the
// backend must tolerate a result arriving before its session is acknowledged.
func (s *SyncService) syncResults(ctx context.Context) streamOutcome {
	logger := observability.WithContext(ctx)

	results, err := s.resultRepo.GetUnsynced(ctx)
	if err != nil {
		logger.Errorf("Loading unsynced results: %v", err)
		return streamOutcome{}
	}
	if len(results) == 0 {
		return streamOutcome{success: true}
	}

	resp, err := s.gw.SyncResults(ctx, mappers.ResultsToSyncRequest(results))
	if err != nil {
		logger.Warnf("Result batch sync failed: %v", err)
		return streamOutcome{}
	}

	outcome := streamOutcome{success: resp.TotalErrors == 0}
	for _, item := range resp.Synced {
		if item.ResultID == "" {
			continue
		}
		if err := s.resultRepo.MarkSynced(ctx, item.ResultID); err != nil {
			logger.Errorf("Marking result %s synced: %v", item.ResultID, err)
			outcome.success = false
			continue
		}
		outcome.synced++
	}
	for _, itemErr := range resp.Errors {
		logger.Warnf("Result %s rejected by backend: %s", itemErr.ResultID, itemErr.Error)
		outcome.itemErrors++
	}

	s.metrics.RecordItems(ctx, "results", int64(outcome.synced), int64(outcome.itemErrors))
	return outcome
}

// HasPendingSync reports whether any unsynced rows exist
func (s *SyncService) HasPendingSync(ctx context.Context) (bool, error) {
	sessions, err := s.sessionRepo.CountUnsynced(ctx)
	if err != nil {
		return false, err
	}
	results, err := s.resultRepo.CountUnsynced(ctx)
	if err != nil {
		return false, err
	}
	return sessions > 0 || results > 0, nil
}

// Status reports the sync queue state for the local API
func (s *SyncService) Status(ctx context.Context) (*models.SyncStatusResponse, error) {
	pendingSessions, err := s.sessionRepo.CountUnsynced(ctx)
	if err != nil {
		return nil, err
	}
	pendingResults, err := s.resultRepo.CountUnsynced(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.SyncStatusResponse{
		PendingSessions: pendingSessions,
		PendingResults:  pendingResults,
		SyncInFlight:    s.inFlight != nil,
		LastSyncAt:      s.lastSyncAt,
		LastSyncOK:      s.lastSyncOK,
	}, nil
}

// RefreshSessions pulls the worker's sessions from the backend into the local
// store. Local rows with unsynced changes win until the next push; a session
// with an undecodable status is skipped and reported, never coerced.
func (s *SyncService) RefreshSessions(ctx context.Context) error {
	logger := observability.WithContext(ctx)

	dtos, err := s.gw.GetSessions(ctx)
	if err != nil {
		return fmt.Errorf("fetching sessions: %w", err)
	}

	var pulled, skipped int
	for _, dto := range dtos {
		session, err := mappers.SessionFromDTO(dto)
		if err != nil {
			logger.Warnf("Skipping session %s from backend: %v", dto.SessionID, err)
			skipped++
			continue
		}

		local, err := s.sessionRepo.GetByID(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("loading session %s: %w", session.ID, err)
		}
		if local != nil && !local.Synced {
			skipped++
			continue
		}

		if local == nil {
			err = s.sessionRepo.Add(ctx, session)
		} else {
			err = s.sessionRepo.Update(ctx, session)
		}
		if err != nil {
			return fmt.Errorf("storing session %s: %w", session.ID, err)
		}

		if err := s.pullResults(ctx, dto.ScanResults); err != nil {
			return err
		}
		pulled++
	}

	logger.Infof("Session pull complete: %d stored, %d skipped", pulled, skipped)
	return nil
}

func (s *SyncService) pullResults(ctx context.Context, dtos []models.ResultDTO) error {
	for _, dto := range dtos {
		result := mappers.ResultFromDTO(dto)

		local, err := s.resultRepo.GetByID(ctx, result.ID)
		if err != nil {
			return fmt.Errorf("loading result %s: %w", result.ID, err)
		}
		if local != nil && !local.Synced {
			continue
		}

		if local == nil {
			err = s.resultRepo.Add(ctx, result)
		} else {
			err = s.resultRepo.Update(ctx, result)
		}
		if err != nil {
			return fmt.Errorf("storing result %s: %w", result.ID, err)
		}
	}
	return nil
}

// RefreshZones pulls the company's zones and crops into the local cache
func (s *SyncService) RefreshZones(ctx context.Context) error {
	dtos, err := s.gw.GetZones(ctx)
	if err != nil {
		return fmt.Errorf("fetching zones: %w", err)
	}

	for _, dto := range dtos {
		zone, crops := mappers.ZoneFromDTO(dto)
		if err := s.zoneRepo.UpsertZone(ctx, zone); err != nil {
			return fmt.Errorf("caching zone %s: %w", zone.ID, err)
		}
		for _, crop := range crops {
			if err := s.zoneRepo.UpsertCrop(ctx, crop); err != nil {
				return fmt.Errorf("caching crop %s: %w", crop.ID, err)
			}
		}
	}

	observability.WithContext(ctx).Infof("Zone cache refreshed: %d zones", len(dtos))
	return nil
}
