package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"

	"go.uber.org/zap"
)

// ErrCorruptItem marks a queued item whose payload can no longer be decoded;
// such items are dropped rather than retried.
var ErrCorruptItem = errors.New("corrupt queue item")

// Uploader is the backend capability the queue delivers through, one method
// per item kind. Implementations must bound each call with a timeout so a
// drain cannot hang on a single item.
type Uploader interface {
	UpsertHourlyHealth(ctx context.Context, userID string, p models.HealthHourlyPayload) error
	CreateSleepSession(ctx context.Context, userID string, p models.SleepPayload) error
	CreateWorkoutSession(ctx context.Context, userID string, p models.WorkoutPayload) error
	CreatePlace(ctx context.Context, userID string, p models.PlacePayload) (string, error)
}

// SyncQueue is a durable at-least-once delivery queue for derived records.
// Items survive process restarts and are removed only after a confirmed
// successful upload; failed items keep their relative order for the next
// drain.
type SyncQueue struct {
	db        *sql.DB
	logger    *zap.Logger
	batchSize int
	drainMu   sync.Mutex
}

// NewSyncQueue creates a sync queue on the given database.
func NewSyncQueue(db *sql.DB, logger *zap.Logger) *SyncQueue {
	return &SyncQueue{
		db:     db,
		logger: logger,
	}
}

// SetBatchSize caps how many items a single drain attempts. Zero or negative
// means unlimited.
func (sq *SyncQueue) SetBatchSize(n int) {
	sq.batchSize = n
}

// Enqueue appends an item durably. It never blocks on the network and may run
// concurrently with an in-flight drain; the new item is simply not attempted
// until the next drain cycle.
func (sq *SyncQueue) Enqueue(item models.QueueItem) error {
	_, err := sq.db.Exec(`
		INSERT INTO sync_queue (item_kind, payload, created_at, retry_count)
		VALUES (?, ?, ?, 0)
	`, string(item.Kind), string(item.Payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to enqueue %s item: %w", item.Kind, err)
	}

	sq.logger.Debug("Item enqueued for sync",
		zap.String("kind", string(item.Kind)),
	)
	return nil
}

// Drain snapshots the queue in FIFO order and attempts delivery of every item
// independently, removing only the items whose upload succeeded. Only one
// drain runs at a time; a second trigger while one is in flight is a no-op
// that just reports the current pending count.
func (sq *SyncQueue) Drain(ctx context.Context, uploader Uploader, userID string) (int, int, error) {
	if !sq.drainMu.TryLock() {
		remaining, err := sq.PendingCount()
		if err != nil {
			return 0, 0, err
		}
		return 0, remaining, nil
	}
	defer sq.drainMu.Unlock()

	items, err := sq.snapshot()
	if err != nil {
		return 0, 0, err
	}

	var succeededIDs, failedIDs []int64
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if err := Deliver(ctx, uploader, userID, item); err != nil {
			if errors.Is(err, ErrCorruptItem) {
				sq.dropCorrupted(item, err)
				continue
			}
			sq.logger.Warn("Upload attempt failed, item stays queued",
				zap.Int64("id", item.ID),
				zap.String("kind", string(item.Kind)),
				zap.Error(err),
			)
			failedIDs = append(failedIDs, item.ID)
			continue
		}
		succeededIDs = append(succeededIDs, item.ID)
	}

	if err := sq.remove(succeededIDs); err != nil {
		return 0, 0, err
	}
	if err := sq.incrementRetry(failedIDs); err != nil {
		sq.logger.Error("Failed to record retry attempt", zap.Error(err))
	}

	remaining, err := sq.PendingCount()
	if err != nil {
		return len(succeededIDs), 0, err
	}

	if len(items) > 0 {
		sq.logger.Info("Sync queue drained",
			zap.Int("succeeded", len(succeededIDs)),
			zap.Int("remaining", remaining),
		)
	}
	return len(succeededIDs), remaining, nil
}

// PendingCount returns the number of items waiting for delivery.
func (sq *SyncQueue) PendingCount() (int, error) {
	var count int
	if err := sq.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get pending count: %w", err)
	}
	return count, nil
}

// CleanupStale removes items older than the given age that exhausted their
// retry budget.
func (sq *SyncQueue) CleanupStale(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	result, err := sq.db.Exec(`
		DELETE FROM sync_queue
		WHERE created_at < ? AND retry_count > 10
	`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup stale items: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		sq.logger.Info("Cleaned up stale queue items",
			zap.Int64("count", rowsAffected),
		)
	}
	return nil
}

func (sq *SyncQueue) snapshot() ([]models.QueueItem, error) {
	query := `
		SELECT id, item_kind, payload, created_at
		FROM sync_queue
		ORDER BY id ASC
	`
	var args []interface{}
	if sq.batchSize > 0 {
		query += ` LIMIT ?`
		args = append(args, sq.batchSize)
	}
	rows, err := sq.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync queue: %w", err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		var kind, payload string
		if err := rows.Scan(&item.ID, &kind, &payload, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		item.Kind = models.ItemKind(kind)
		item.Payload = []byte(payload)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync queue: %w", err)
	}
	return items, nil
}

// Deliver makes exactly one backend call for the item. It is also used by the
// immediate-upload path before anything is queued.
func Deliver(ctx context.Context, uploader Uploader, userID string, item models.QueueItem) error {
	switch item.Kind {
	case models.KindHealthHourly:
		var p models.HealthHourlyPayload
		if err := item.DecodePayload(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptItem, err)
		}
		return uploader.UpsertHourlyHealth(ctx, userID, p)
	case models.KindSleepSession:
		var p models.SleepPayload
		if err := item.DecodePayload(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptItem, err)
		}
		return uploader.CreateSleepSession(ctx, userID, p)
	case models.KindWorkoutSession:
		var p models.WorkoutPayload
		if err := item.DecodePayload(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptItem, err)
		}
		return uploader.CreateWorkoutSession(ctx, userID, p)
	case models.KindPlace:
		var p models.PlacePayload
		if err := item.DecodePayload(&p); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptItem, err)
		}
		_, err := uploader.CreatePlace(ctx, userID, p)
		return err
	default:
		return fmt.Errorf("%w: unknown item kind %q", ErrCorruptItem, item.Kind)
	}
}

// dropCorrupted removes an undecodable item so it cannot wedge the queue.
func (sq *SyncQueue) dropCorrupted(item models.QueueItem, cause error) {
	sq.logger.Error("Removing corrupted queue item",
		zap.Int64("id", item.ID),
		zap.String("kind", string(item.Kind)),
		zap.Error(cause),
	)
	sq.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, item.ID)
}

func (sq *SyncQueue) remove(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "DELETE FROM sync_queue WHERE id IN ("
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	if _, err := sq.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to remove delivered items: %w", err)
	}
	return nil
}

func (sq *SyncQueue) incrementRetry(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := "UPDATE sync_queue SET retry_count = retry_count + 1, last_attempt = ? WHERE id IN ("
	args := make([]interface{}, len(ids)+1)
	args[0] = time.Now()
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i+1] = id
	}
	query += ")"

	if _, err := sq.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	return nil
}
