package tracker

import (
	"errors"
	"sync"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/geo"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/ingest"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackingState represents the trip state machine state.
type TrackingState string

const (
	StateIdle     TrackingState = "idle"
	StateTracking TrackingState = "tracking"
)

var (
	// ErrNotTracking is returned when Stop is called while idle.
	ErrNotTracking = errors.New("no tracking session in progress")
	// ErrAlreadyTracking is returned when Start is called while tracking.
	ErrAlreadyTracking = errors.New("tracking session already in progress")
	// ErrEmptyTrace is returned when a session stops with zero samples; no
	// timeline is created.
	ErrEmptyTrace = errors.New("tracking session has no samples")
)

// TripTracker accumulates a session's samples into running totals and
// finalizes a Timeline when the session stops.
type TripTracker struct {
	ingestor *ingest.Ingestor
	logger   *zap.Logger

	state            TrackingState
	current          *models.Timeline
	lastSample       *models.LocationSample
	runningDistanceM float64
	speeds           []float64
	mu               sync.RWMutex
}

// NewTripTracker creates a trip tracker reading from the given ingestor.
func NewTripTracker(ingestor *ingest.Ingestor, logger *zap.Logger) *TripTracker {
	return &TripTracker{
		ingestor: ingestor,
		logger:   logger,
		state:    StateIdle,
	}
}

// Start begins a new tracking session with an empty sample trace.
func (tt *TripTracker) Start() error {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.state == StateTracking {
		return ErrAlreadyTracking
	}

	tt.current = &models.Timeline{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
	}
	tt.lastSample = nil
	tt.runningDistanceM = 0
	tt.speeds = tt.speeds[:0]
	tt.state = StateTracking
	tt.ingestor.Reset()

	tt.logger.Info("Tracking session started",
		zap.String("timeline_id", tt.current.ID),
	)
	return nil
}

// HandleLocation updates the running totals for one applied location sample.
// O(1); a no-op while idle.
func (tt *TripTracker) HandleLocation(sample models.LocationSample) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.state != StateTracking {
		return
	}

	speed := sample.SpeedKmh
	if tt.lastSample != nil {
		distM := geo.DistanceM(
			tt.lastSample.Latitude, tt.lastSample.Longitude,
			sample.Latitude, sample.Longitude,
		)
		tt.runningDistanceM += distM

		// Derive speed from consecutive points when the fix has no usable
		// native speed
		if speed <= 0 {
			if dt := sample.Timestamp.Sub(tt.lastSample.Timestamp); dt > 0 {
				speed = (distM / 1000) / dt.Hours()
			}
		}
	}
	tt.speeds = append(tt.speeds, speed)

	s := sample
	tt.lastSample = &s
}

// Stop finalizes the session. It returns ErrNotTracking while idle and
// ErrEmptyTrace when the trace has no samples; in both cases no timeline is
// created. Every stop is terminal for the session.
func (tt *TripTracker) Stop() (models.Timeline, error) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.state != StateTracking {
		return models.Timeline{}, ErrNotTracking
	}

	tt.state = StateIdle
	timeline := tt.current
	tt.current = nil

	samples, _ := tt.ingestor.Snapshot()
	if len(samples) == 0 {
		tt.logger.Warn("Tracking session stopped with empty trace",
			zap.String("timeline_id", timeline.ID),
		)
		return models.Timeline{}, ErrEmptyTrace
	}

	timeline.EndTime = time.Now()
	timeline.Duration = timeline.EndTime.Sub(timeline.StartTime)
	timeline.Samples = samples

	// The frozen trace is time-sorted, so the total counts late-inserted
	// companion samples exactly once
	var totalM float64
	for i := 1; i < len(samples); i++ {
		totalM += geo.DistanceM(
			samples[i-1].Latitude, samples[i-1].Longitude,
			samples[i].Latitude, samples[i].Longitude,
		)
	}
	timeline.TotalDistanceM = totalM

	// Speeds at or below zero are sensor noise and excluded from the mean,
	// not zeroed, so flat trips don't skew the average
	var sum float64
	var positives int
	var max float64
	for _, speed := range tt.speeds {
		if speed > 0 {
			sum += speed
			positives++
		}
		if speed > max {
			max = speed
		}
	}
	if positives > 0 {
		timeline.AverageSpeedKmh = sum / float64(positives)
	}
	timeline.MaxSpeedKmh = max

	tt.logger.Info("Tracking session stopped",
		zap.String("timeline_id", timeline.ID),
		zap.Int("sample_count", len(samples)),
		zap.Float64("total_distance_m", timeline.TotalDistanceM),
		zap.Duration("duration", timeline.Duration),
	)

	return *timeline, nil
}

// State returns the current state machine state.
func (tt *TripTracker) State() TrackingState {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.state
}

// Status returns the live session totals.
func (tt *TripTracker) Status() map[string]interface{} {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	status := map[string]interface{}{
		"state": string(tt.state),
	}
	if tt.state == StateTracking && tt.current != nil {
		locCount, bioCount := tt.ingestor.Counts()
		status["timeline_id"] = tt.current.ID
		status["running_distance_m"] = tt.runningDistanceM
		status["duration_seconds"] = int64(time.Since(tt.current.StartTime).Seconds())
		status["location_samples"] = locCount
		status["biometric_samples"] = bioCount
	}
	return status
}
