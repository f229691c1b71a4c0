package services

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/cropcare/fieldsync/internal/gateway"
	"github.com/cropcare/fieldsync/internal/observability"
)

const defaultSyncInterval = 15 * time.Minute

// jobTimeout bounds one sync pass; it is the only cancellation boundary a
// scheduled pass has
const jobTimeout = 5 * time.Minute

// SchedulerService invokes the sync service periodically and on demand,
// gated on backend reachability, with exponential backoff after failures.
type SchedulerService struct {
	syncService *SyncService
	gw          gateway.ScannerGateway
	interval    time.Duration
	backoff     *backoff.ExponentialBackOff

	mu       sync.Mutex
	started  bool
	stopChan chan struct{}
	runNow   chan struct{}
}

// NewSchedulerService creates a new SchedulerService
func NewSchedulerService(syncService *SyncService, gw gateway.ScannerGateway, interval time.Duration) *SchedulerService {
	if interval <= 0 {
		interval = defaultSyncInterval
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = 4 * interval

	return &SchedulerService{
		syncService: syncService,
		gw:          gw,
		interval:    interval,
		backoff:     b,
		runNow:      make(chan struct{}, 1),
	}
}

// Start registers the periodic sync loop. Calling Start on an already
// started scheduler keeps the existing registration.
func (s *SchedulerService) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	observability.Infof("Sync scheduler started (every %s)", s.interval)

	go s.loop(stop)
}

// Stop halts the periodic loop
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	close(s.stopChan)
	observability.Infof("Sync scheduler stopped")
}

// TriggerImmediate requests a one-off sync, independent of the periodic
// registration. While the loop runs, at most one manual request is queued and
// a newer request supersedes a still-pending one. Without the loop the pass
// runs on its own goroutine; the sync service's single-flight guard coalesces
// any overlap.
func (s *SchedulerService) TriggerImmediate() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		go s.runOnce()
		return
	}

	select {
	case s.runNow <- struct{}{}:
	default:
		// A one-off is already pending; it stands in for this one
	}
}

func (s *SchedulerService) loop(stop chan struct{}) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.scheduleNext(timer, s.runOnce())
		case <-s.runNow:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			s.scheduleNext(timer, s.runOnce())
		case <-stop:
			return
		}
	}
}

// scheduleNext arms the timer: the normal cadence after a clean pass, the
// backoff sequence after a failed or skipped one
func (s *SchedulerService) scheduleNext(timer *time.Timer, ok bool) {
	if ok {
		s.backoff.Reset()
		timer.Reset(s.interval)
		return
	}
	wait := s.backoff.NextBackOff()
	observability.Warnf("Sync pass failed, retrying in %s", wait.Round(time.Second))
	timer.Reset(wait)
}

// runOnce performs one connectivity-gated sync pass
func (s *SchedulerService) runOnce() bool {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.gw.Ping(ctx); err != nil {
		observability.Debugf("Skipping sync, backend unreachable: %v", err)
		return false
	}

	summary, err := s.syncService.Synchronize(ctx)
	if err != nil {
		observability.Errorf("Sync pass error: %v", err)
		return false
	}

	// Partial progress counts as success at this level: the remaining rows
	// are queued for the next pass, not retried on the backoff schedule
	if !summary.TotalSuccess {
		observability.Warnf("Sync pass left unsynced rows queued")
	}
	return true
}
