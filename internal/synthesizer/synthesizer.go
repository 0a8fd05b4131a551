package synthesizer

import (
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/geo"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Below this instantaneous speed the user is considered stationary.
	dwellSpeedThresholdKmh = 0.5
	// Dwells shorter than this are discarded as noise.
	minDwellDuration = 30 * time.Second
	// Stress moves of at most this many points (0-100 scale) count as
	// unchanged.
	stressDeltaThreshold = 10
)

// Synthesizer scans a finalized sample trace for dwell intervals and
// synthesizes one checkpoint per qualifying dwell, fusing the nearest
// biometric readings into a mood and stress classification.
type Synthesizer struct {
	logger *zap.Logger
}

// NewSynthesizer creates a checkpoint synthesizer.
func NewSynthesizer(logger *zap.Logger) *Synthesizer {
	return &Synthesizer{logger: logger}
}

// Synthesize walks the time-ordered trace and returns the checkpoints for
// every dwell of at least the minimum duration, anchored at the first sample
// of the dwell interval. A trailing dwell still active at the end of the
// trace is included.
func (s *Synthesizer) Synthesize(samples []models.LocationSample, biometrics []models.BiometricSample) []models.Checkpoint {
	var checkpoints []models.Checkpoint
	var dwellAnchor *models.LocationSample
	var dwellDuration time.Duration

	emit := func(anchor models.LocationSample, stay time.Duration) {
		var prev *models.Checkpoint
		if len(checkpoints) > 0 {
			prev = &checkpoints[len(checkpoints)-1]
		}
		checkpoints = append(checkpoints, s.buildCheckpoint(anchor, stay, biometrics, prev))
	}

	for i := 1; i < len(samples); i++ {
		prev := samples[i-1]
		cur := samples[i]

		dt := cur.Timestamp.Sub(prev.Timestamp)
		if dt <= 0 {
			// Duplicate timestamps are tolerated, they just carry no interval
			continue
		}

		distM := geo.DistanceM(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
		speedKmh := (distM / 1000) / dt.Hours()

		if speedKmh < dwellSpeedThresholdKmh {
			if dwellAnchor == nil {
				anchor := prev
				dwellAnchor = &anchor
				dwellDuration = 0
			}
			dwellDuration += dt
			continue
		}

		if dwellAnchor != nil {
			if dwellDuration >= minDwellDuration {
				emit(*dwellAnchor, dwellDuration)
			}
			dwellAnchor = nil
			dwellDuration = 0
		}
	}

	if dwellAnchor != nil && dwellDuration >= minDwellDuration {
		emit(*dwellAnchor, dwellDuration)
	}

	s.logger.Debug("Checkpoint synthesis completed",
		zap.Int("sample_count", len(samples)),
		zap.Int("checkpoint_count", len(checkpoints)),
	)

	return checkpoints
}

// ManualInput carries a user-supplied checkpoint.
type ManualInput struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
	Mood      models.MoodTag
	Note      *string
}

// ManualCheckpoint builds a checkpoint from user input. Location, time and
// mood come from the user; biometric fusion and the stress delta against the
// session's last checkpoint still apply.
func (s *Synthesizer) ManualCheckpoint(input ManualInput, biometrics []models.BiometricSample, prev *models.Checkpoint) models.Checkpoint {
	cp := models.Checkpoint{
		ID:        uuid.NewString(),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Timestamp: input.Timestamp,
		Mood:      input.Mood,
		Note:      input.Note,
	}
	if cp.Mood == "" {
		cp.Mood = models.MoodNeutral
	}
	s.fuseBiometrics(&cp, biometrics)
	cp.StressChange = stressDelta(prev, cp.StressLevel)
	return cp
}

func (s *Synthesizer) buildCheckpoint(anchor models.LocationSample, stay time.Duration, biometrics []models.BiometricSample, prev *models.Checkpoint) models.Checkpoint {
	cp := models.Checkpoint{
		ID:           uuid.NewString(),
		Latitude:     anchor.Latitude,
		Longitude:    anchor.Longitude,
		Timestamp:    anchor.Timestamp,
		StayDuration: stay,
	}
	s.fuseBiometrics(&cp, biometrics)
	cp.Mood = moodFromHeartRate(cp.HeartRateBPM)
	cp.StressChange = stressDelta(prev, cp.StressLevel)
	return cp
}

// fuseBiometrics copies the reading closest in time to the checkpoint. There
// is no maximum window; arbitrarily stale fallback data is tolerated.
func (s *Synthesizer) fuseBiometrics(cp *models.Checkpoint, biometrics []models.BiometricSample) {
	nearest := nearestBiometric(biometrics, cp.Timestamp)
	if nearest == nil {
		return
	}
	cp.HeartRateBPM = nearest.HeartRateBPM
	cp.ActiveCaloriesKcal = nearest.ActiveCaloriesKcal
	cp.Steps = nearest.Steps
	cp.DistanceM = nearest.DistanceM
	cp.HRVMs = nearest.HRVMs
	cp.StressLevel = nearest.StressLevel
}

func nearestBiometric(biometrics []models.BiometricSample, ts time.Time) *models.BiometricSample {
	var nearest *models.BiometricSample
	var best time.Duration
	for i := range biometrics {
		diff := biometrics[i].Timestamp.Sub(ts)
		if diff < 0 {
			diff = -diff
		}
		if nearest == nil || diff < best {
			nearest = &biometrics[i]
			best = diff
		}
	}
	return nearest
}

// moodFromHeartRate maps heart rate buckets to a mood tag: resting and
// energized ranges read as happy, the in-between and high-exertion ranges as
// neutral. No reading reads as neutral.
func moodFromHeartRate(hr *float64) models.MoodTag {
	if hr == nil {
		return models.MoodNeutral
	}
	switch {
	case *hr < 60:
		return models.MoodHappy
	case *hr < 80:
		return models.MoodNeutral
	case *hr < 100:
		return models.MoodHappy
	default:
		return models.MoodNeutral
	}
}

// stressDelta compares the stress level against the previous emitted
// checkpoint of the same timeline. The first checkpoint, or a comparison with
// a missing level on either side, is unchanged.
func stressDelta(prev *models.Checkpoint, level *int) models.StressDelta {
	if prev == nil || prev.StressLevel == nil || level == nil {
		return models.StressUnchanged
	}
	diff := *level - *prev.StressLevel
	switch {
	case diff > stressDeltaThreshold:
		return models.StressIncreased
	case diff < -stressDeltaThreshold:
		return models.StressDecreased
	default:
		return models.StressUnchanged
	}
}
