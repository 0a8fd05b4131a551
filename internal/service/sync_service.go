package service

import (
	"context"
	"sync"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/identity"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/queue"

	"go.uber.org/zap"
)

// SyncService routes derived records to the backend: an immediate upload when
// a registered identity is available, the durable queue otherwise or on
// failure. Drains run on a timer tick and on explicit triggers (connectivity
// restoration, HTTP request).
type SyncService struct {
	queue    *queue.SyncQueue
	uploader queue.Uploader
	identity identity.Provider
	logger   *zap.Logger

	drainInterval time.Duration
	maxItemAge    time.Duration

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSyncService creates a sync service.
func NewSyncService(
	q *queue.SyncQueue,
	uploader queue.Uploader,
	provider identity.Provider,
	drainInterval time.Duration,
	maxItemAge time.Duration,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		queue:         q,
		uploader:      uploader,
		identity:      provider,
		logger:        logger,
		drainInterval: drainInterval,
		maxItemAge:    maxItemAge,
		stopChan:      make(chan struct{}),
	}
}

// Submit hands one derived record to the sync path. With a registered
// identity it attempts a single immediate upload and falls back to the queue
// on failure; without one it queues unconditionally. Never blocks the
// producer beyond one bounded network call.
func (ss *SyncService) Submit(ctx context.Context, item models.QueueItem) error {
	userID, ok := ss.identity.CurrentUserID()
	if ok {
		if err := queue.Deliver(ctx, ss.uploader, userID, item); err == nil {
			ss.logger.Debug("Item uploaded immediately",
				zap.String("kind", string(item.Kind)),
			)
			return nil
		} else {
			ss.logger.Warn("Immediate upload failed, queuing locally",
				zap.String("kind", string(item.Kind)),
				zap.Error(err),
			)
		}
	}
	return ss.queue.Enqueue(item)
}

// Drain attempts delivery of everything queued. Without a registered identity
// it is a no-op leaving every item queued.
func (ss *SyncService) Drain(ctx context.Context) (int, int, error) {
	userID, ok := ss.identity.CurrentUserID()
	if !ok {
		remaining, err := ss.queue.PendingCount()
		if err != nil {
			return 0, 0, err
		}
		ss.logger.Debug("Drain skipped, no registered user",
			zap.Int("remaining", remaining),
		)
		return 0, remaining, nil
	}
	return ss.queue.Drain(ctx, ss.uploader, userID)
}

// PendingCount returns the "pending uploads" indicator value.
func (ss *SyncService) PendingCount() int {
	count, err := ss.queue.PendingCount()
	if err != nil {
		ss.logger.Error("Failed to get pending count", zap.Error(err))
		return 0
	}
	return count
}

// Start begins the periodic drain loop.
func (ss *SyncService) Start() {
	ss.wg.Add(1)
	go ss.drainLoop()

	ss.logger.Info("Sync service started",
		zap.Duration("drain_interval", ss.drainInterval),
	)
}

// Stop stops the drain loop after one final drain attempt.
func (ss *SyncService) Stop() {
	ss.stopOnce.Do(func() {
		close(ss.stopChan)
	})
	ss.wg.Wait()
	ss.logger.Info("Sync service stopped")
}

func (ss *SyncService) drainLoop() {
	defer ss.wg.Done()

	ticker := time.NewTicker(ss.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.processTick()
		case <-ss.stopChan:
			// One last attempt before shutdown
			ss.processTick()
			return
		}
	}
}

func (ss *SyncService) processTick() {
	if count := ss.PendingCount(); count > 0 {
		if _, _, err := ss.Drain(context.Background()); err != nil {
			ss.logger.Error("Scheduled drain failed", zap.Error(err))
		}
	}
	if err := ss.queue.CleanupStale(ss.maxItemAge); err != nil {
		ss.logger.Error("Queue cleanup failed", zap.Error(err))
	}
}
