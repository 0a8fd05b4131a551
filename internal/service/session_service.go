package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/ingest"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/repository"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/synthesizer"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/tracker"

	"go.uber.org/zap"
)

// SessionService orchestrates the live-tracking path: session start/stop,
// checkpoint synthesis, timeline persistence and handoff of derived records
// to the sync path.
type SessionService struct {
	ingestor    *ingest.Ingestor
	tracker     *tracker.TripTracker
	synthesizer *synthesizer.Synthesizer
	store       *repository.TimelineRepository
	sync        *SyncService
	logger      *zap.Logger

	lastTimelineID string
	mu             sync.Mutex
	wg             sync.WaitGroup
}

// NewSessionService creates a session service.
func NewSessionService(
	ingestor *ingest.Ingestor,
	tripTracker *tracker.TripTracker,
	synth *synthesizer.Synthesizer,
	store *repository.TimelineRepository,
	syncService *SyncService,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		ingestor:    ingestor,
		tracker:     tripTracker,
		synthesizer: synth,
		store:       store,
		sync:        syncService,
		logger:      logger,
	}
}

// StartSession begins a new tracking session.
func (s *SessionService) StartSession() error {
	return s.tracker.Start()
}

// StopSession finalizes the active session and returns its timeline id.
// Structural errors (not tracking, empty trace) surface synchronously; the
// O(n) trace scan, persistence and upload submission run on a background
// task so the caller is not blocked.
func (s *SessionService) StopSession() (string, error) {
	timeline, err := s.tracker.Stop()
	if err != nil {
		return "", err
	}

	_, biometrics := s.ingestor.Snapshot()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.finalize(timeline, biometrics)
	}()

	return timeline.ID, nil
}

// AddManualCheckpoint appends a user-created checkpoint to the most recently
// finalized timeline. Location, time and mood come from the user; the stress
// delta still runs against the timeline's last checkpoint.
func (s *SessionService) AddManualCheckpoint(input synthesizer.ManualInput) (models.Checkpoint, error) {
	s.mu.Lock()
	timelineID := s.lastTimelineID
	s.mu.Unlock()

	if timelineID == "" {
		return models.Checkpoint{}, fmt.Errorf("no finalized timeline to attach a checkpoint to")
	}

	timeline, err := s.store.GetByID(timelineID)
	if err != nil {
		return models.Checkpoint{}, err
	}

	var prev *models.Checkpoint
	if n := len(timeline.Checkpoints); n > 0 {
		prev = &timeline.Checkpoints[n-1]
	}

	_, biometrics := s.ingestor.Snapshot()
	cp := s.synthesizer.ManualCheckpoint(input, biometrics, prev)

	if err := s.store.AppendCheckpoint(timelineID, cp); err != nil {
		return models.Checkpoint{}, err
	}

	s.submitPlace(cp)
	return cp, nil
}

// AttachCheckpoint appends a checkpoint sourced asynchronously from a paired
// device to an already-saved timeline.
func (s *SessionService) AttachCheckpoint(timelineID string, cp models.Checkpoint) error {
	if err := s.store.AppendCheckpoint(timelineID, cp); err != nil {
		return err
	}
	s.submitPlace(cp)
	return nil
}

// RecordSleepSession hands a companion-provided sleep session to the sync
// path.
func (s *SessionService) RecordSleepSession(p models.SleepPayload) error {
	item, err := models.NewQueueItem(models.KindSleepSession, p)
	if err != nil {
		return err
	}
	return s.sync.Submit(context.Background(), item)
}

// Wait blocks until all background finalization work has completed.
func (s *SessionService) Wait() {
	s.wg.Wait()
}

// Status reports the live tracking state plus the pending upload count.
func (s *SessionService) Status() map[string]interface{} {
	status := s.tracker.Status()
	status["pending_uploads"] = s.sync.PendingCount()
	return status
}

// finalize enriches the timeline with checkpoints, persists it and submits
// the derived records.
func (s *SessionService) finalize(timeline models.Timeline, biometrics []models.BiometricSample) {
	timeline.Checkpoints = s.synthesizer.Synthesize(timeline.Samples, biometrics)

	if err := s.store.Save(timeline); err != nil {
		s.logger.Error("Failed to persist timeline",
			zap.String("timeline_id", timeline.ID),
			zap.Error(err),
		)
		return
	}

	s.mu.Lock()
	s.lastTimelineID = timeline.ID
	s.mu.Unlock()

	s.logger.Info("Timeline finalized",
		zap.String("timeline_id", timeline.ID),
		zap.Int("checkpoint_count", len(timeline.Checkpoints)),
	)

	ctx := context.Background()

	if item, err := models.NewQueueItem(models.KindWorkoutSession, buildWorkout(timeline, biometrics)); err == nil {
		if err := s.sync.Submit(ctx, item); err != nil {
			s.logger.Error("Failed to submit workout session", zap.Error(err))
		}
	}

	for _, rollup := range buildHourlyRollups(biometrics) {
		item, err := models.NewQueueItem(models.KindHealthHourly, rollup)
		if err != nil {
			continue
		}
		if err := s.sync.Submit(ctx, item); err != nil {
			s.logger.Error("Failed to submit hourly rollup", zap.Error(err))
		}
	}

	for _, cp := range timeline.Checkpoints {
		s.submitPlace(cp)
	}
}

func (s *SessionService) submitPlace(cp models.Checkpoint) {
	item, err := models.NewQueueItem(models.KindPlace, models.PlacePayload{
		Name:         fmt.Sprintf("Stop %s", cp.Timestamp.Format("2006-01-02 15:04")),
		Latitude:     cp.Latitude,
		Longitude:    cp.Longitude,
		Note:         cp.Note,
		VisitedAt:    cp.Timestamp,
		StayDuration: cp.StayDuration,
	})
	if err != nil {
		return
	}
	if err := s.sync.Submit(context.Background(), item); err != nil {
		s.logger.Error("Failed to submit place", zap.Error(err))
	}
}

// buildWorkout derives one workout session from a finished trip.
func buildWorkout(timeline models.Timeline, biometrics []models.BiometricSample) models.WorkoutPayload {
	payload := models.WorkoutPayload{
		Kind:        "outdoor",
		StartTime:   timeline.StartTime,
		EndTime:     timeline.EndTime,
		DistanceM:   timeline.TotalDistanceM,
		AvgSpeedKmh: timeline.AverageSpeedKmh,
	}

	var hrSum, hrMax float64
	var hrCount int
	for _, b := range biometrics {
		if b.HeartRateBPM != nil {
			hrSum += *b.HeartRateBPM
			hrCount++
			if *b.HeartRateBPM > hrMax {
				hrMax = *b.HeartRateBPM
			}
		}
		if b.ActiveCaloriesKcal != nil {
			payload.ActiveCaloriesKcal += *b.ActiveCaloriesKcal
		}
	}
	if hrCount > 0 {
		avg := hrSum / float64(hrCount)
		payload.AvgHeartRateBPM = &avg
		payload.MaxHeartRateBPM = &hrMax
	}
	return payload
}

// buildHourlyRollups aggregates the session's biometric samples into one
// payload per hour bucket, oldest first.
func buildHourlyRollups(biometrics []models.BiometricSample) []models.HealthHourlyPayload {
	type rollupAcc struct {
		payload models.HealthHourlyPayload
		hrSum   float64
		hrMin   float64
		hrMax   float64
		hrCount int
		hrvSum  float64
		hrvN    int
	}

	buckets := make(map[time.Time]*rollupAcc)
	for _, b := range biometrics {
		hour := b.Timestamp.Truncate(time.Hour)
		acc, ok := buckets[hour]
		if !ok {
			acc = &rollupAcc{payload: models.HealthHourlyPayload{HourBucket: hour}}
			buckets[hour] = acc
		}
		if b.Steps != nil {
			acc.payload.Steps += *b.Steps
		}
		if b.ActiveCaloriesKcal != nil {
			acc.payload.ActiveCaloriesKcal += *b.ActiveCaloriesKcal
		}
		if b.DistanceM != nil {
			acc.payload.DistanceM += *b.DistanceM
		}
		if b.HeartRateBPM != nil {
			hr := *b.HeartRateBPM
			acc.hrSum += hr
			acc.hrCount++
			if acc.hrCount == 1 || hr < acc.hrMin {
				acc.hrMin = hr
			}
			if hr > acc.hrMax {
				acc.hrMax = hr
			}
		}
		if b.HRVMs != nil {
			acc.hrvSum += *b.HRVMs
			acc.hrvN++
		}
	}

	rollups := make([]models.HealthHourlyPayload, 0, len(buckets))
	for _, acc := range buckets {
		if acc.hrCount > 0 {
			avg := acc.hrSum / float64(acc.hrCount)
			min := acc.hrMin
			max := acc.hrMax
			acc.payload.AvgHeartRateBPM = &avg
			acc.payload.MinHeartRateBPM = &min
			acc.payload.MaxHeartRateBPM = &max
		}
		if acc.hrvN > 0 {
			avg := acc.hrvSum / float64(acc.hrvN)
			acc.payload.AvgHRVMs = &avg
		}
		rollups = append(rollups, acc.payload)
	}
	sort.Slice(rollups, func(i, j int) bool {
		return rollups[i].HourBucket.Before(rollups[j].HourBucket)
	})
	return rollups
}
