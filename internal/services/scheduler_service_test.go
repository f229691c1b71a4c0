package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cropcare/fieldsync/internal/models"
)

func TestSchedulerService_RunOnce(t *testing.T) {
	t.Run("skips the pass when the backend is unreachable", func(t *testing.T) {
		env := newTestEnv(t)
		env.gw.pingErr = errors.New("no route to host")

		syncService := env.newSyncService()
		var passes atomic.Int32
		syncService.SetNotifier(&fnNotifier{
			started:   func() { passes.Add(1) },
			completed: func(SyncSummary) {},
		})

		scheduler := NewSchedulerService(syncService, env.gw, time.Minute)

		assert.False(t, scheduler.runOnce())
		assert.Zero(t, passes.Load(), "no pass runs while offline")
	})

	t.Run("runs a pass when the backend answers", func(t *testing.T) {
		env := newTestEnv(t)

		syncService := env.newSyncService()
		var passes atomic.Int32
		syncService.SetNotifier(&fnNotifier{
			started:   func() { passes.Add(1) },
			completed: func(SyncSummary) {},
		})

		scheduler := NewSchedulerService(syncService, env.gw, time.Minute)

		assert.True(t, scheduler.runOnce())
		assert.EqualValues(t, 1, passes.Load())
	})

	t.Run("a partial pass still follows the normal cadence", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedSession(t, false)

		env.gw.syncSessionsFn = func(req models.SessionSyncRequest) (*models.SyncResponse, error) {
			return nil, errors.New("connection reset")
		}

		scheduler := NewSchedulerService(env.newSyncService(), env.gw, time.Minute)

		assert.True(t, scheduler.runOnce(), "queued leftovers wait for the next tick, not the backoff schedule")
	})
}

func TestSchedulerService_StartStop(t *testing.T) {
	env := newTestEnv(t)
	scheduler := NewSchedulerService(env.newSyncService(), env.gw, time.Hour)

	scheduler.Start()
	scheduler.Start() // keeps the existing registration
	scheduler.Stop()
	scheduler.Stop() // stopping twice is safe
}

// gatedGateway stalls Ping so a pass can be held open mid-flight
type gatedGateway struct {
	*stubGateway
	gate chan struct{}
}

func (g *gatedGateway) Ping(ctx context.Context) error {
	<-g.gate
	return nil
}

func TestSchedulerService_TriggerImmediate(t *testing.T) {
	env := newTestEnv(t)
	gw := &gatedGateway{stubGateway: env.gw, gate: make(chan struct{})}

	var passes atomic.Int32
	syncService := env.newSyncService()
	syncService.SetNotifier(&fnNotifier{
		started:   func() { passes.Add(1) },
		completed: func(SyncSummary) {},
	})

	scheduler := NewSchedulerService(syncService, gw, time.Hour)
	scheduler.Start()
	defer scheduler.Stop()

	// The first trigger starts a pass that stalls on the connectivity gate.
	// The rest arrive while it runs and collapse into a single pending request.
	scheduler.TriggerImmediate()
	time.Sleep(50 * time.Millisecond)
	scheduler.TriggerImmediate()
	scheduler.TriggerImmediate()
	scheduler.TriggerImmediate()
	close(gw.gate)

	require.Eventually(t, func() bool { return passes.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.EqualValues(t, 2, passes.Load(), "triggers queued during a pass coalesce into one follow-up")
}

func TestSchedulerService_TriggerImmediateWithoutStart(t *testing.T) {
	env := newTestEnv(t)

	var passes atomic.Int32
	syncService := env.newSyncService()
	syncService.SetNotifier(&fnNotifier{
		started:   func() { passes.Add(1) },
		completed: func(SyncSummary) {},
	})

	// Periodic sync is off (autoStart=false); the manual trigger must still
	// run a pass on its own
	scheduler := NewSchedulerService(syncService, env.gw, time.Hour)
	scheduler.TriggerImmediate()

	require.Eventually(t, func() bool { return passes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerService_DefaultInterval(t *testing.T) {
	env := newTestEnv(t)
	scheduler := NewSchedulerService(env.newSyncService(), env.gw, 0)
	assert.Equal(t, defaultSyncInterval, scheduler.interval)
}
