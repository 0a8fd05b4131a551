package synthesizer_test

import (
	"testing"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/synthesizer"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var base = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func stationary(at time.Duration, lat float64) models.LocationSample {
	return models.LocationSample{
		Latitude:  lat,
		Longitude: 13.405,
		Timestamp: base.Add(at),
	}
}

// dwellTrace is a trace that holds still at lat for the given duration and
// then moves away fast enough to end the dwell.
func dwellTrace(dwell time.Duration) []models.LocationSample {
	return []models.LocationSample{
		stationary(0, 52.52),
		stationary(dwell, 52.52),
		stationary(dwell+time.Second, 52.60), // ~8.9 km in 1 s, dwell over
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestDwellBelowThresholdYieldsNoCheckpoint(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	cps := s.Synthesize(dwellTrace(29*time.Second+900*time.Millisecond), nil)
	require.Empty(t, cps)
}

func TestDwellAtThresholdYieldsOneCheckpoint(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	cps := s.Synthesize(dwellTrace(30*time.Second), nil)
	require.Len(t, cps, 1)
	require.Equal(t, 30*time.Second, cps[0].StayDuration)
}

func TestCheckpointAnchoredAtFirstDwellSample(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	cps := s.Synthesize(dwellTrace(45*time.Second), nil)
	require.Len(t, cps, 1)
	require.Equal(t, base, cps[0].Timestamp)
	require.Equal(t, 52.52, cps[0].Latitude)
}

func TestTrailingDwellIsEmitted(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	// The trace ends while still dwelling
	samples := []models.LocationSample{
		stationary(0, 52.52),
		stationary(40*time.Second, 52.52),
	}
	cps := s.Synthesize(samples, nil)
	require.Len(t, cps, 1)
	require.Equal(t, 40*time.Second, cps[0].StayDuration)
}

func TestMoodMapping(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	cases := []struct {
		name string
		hr   *float64
		want models.MoodTag
	}{
		{"resting", floatPtr(55), models.MoodHappy},
		{"ordinary", floatPtr(70), models.MoodNeutral},
		{"energized", floatPtr(90), models.MoodHappy},
		{"high exertion", floatPtr(110), models.MoodNeutral},
		{"no reading", nil, models.MoodNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var biometrics []models.BiometricSample
			if tc.hr != nil {
				biometrics = []models.BiometricSample{
					{HeartRateBPM: tc.hr, Timestamp: base},
				}
			}
			cps := s.Synthesize(dwellTrace(60*time.Second), biometrics)
			require.Len(t, cps, 1)
			require.Equal(t, tc.want, cps[0].Mood)
		})
	}
}

func TestFirstCheckpointStressUnchanged(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	biometrics := []models.BiometricSample{
		{StressLevel: intPtr(95), Timestamp: base},
	}
	cps := s.Synthesize(dwellTrace(60*time.Second), biometrics)
	require.Len(t, cps, 1)
	require.Equal(t, models.StressUnchanged, cps[0].StressChange)
	require.Equal(t, 95, *cps[0].StressLevel)
}

// twoDwellTrace dwells at two distinct points separated by a fast hop.
func twoDwellTrace() []models.LocationSample {
	return []models.LocationSample{
		stationary(0, 52.52),
		stationary(60*time.Second, 52.52),
		stationary(61*time.Second, 52.60),
		stationary(130*time.Second, 52.60),
	}
}

func TestStressDeltaAgainstPreviousCheckpoint(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	cases := []struct {
		name   string
		second int
		want   models.StressDelta
	}{
		{"rise above threshold", 45, models.StressIncreased},
		{"drop below threshold", 15, models.StressDecreased},
		{"within threshold", 38, models.StressUnchanged},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			biometrics := []models.BiometricSample{
				{StressLevel: intPtr(30), Timestamp: base},
				{StressLevel: intPtr(tc.second), Timestamp: base.Add(61 * time.Second)},
			}
			cps := s.Synthesize(twoDwellTrace(), biometrics)
			require.Len(t, cps, 2)
			require.Equal(t, models.StressUnchanged, cps[0].StressChange)
			require.Equal(t, tc.want, cps[1].StressChange)
		})
	}
}

func TestNearestBiometricFusedWithoutWindow(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	// Hours stale, still the nearest available reading
	biometrics := []models.BiometricSample{
		{
			HeartRateBPM:       floatPtr(64),
			ActiveCaloriesKcal: floatPtr(120),
			Steps:              intPtr(800),
			HRVMs:              floatPtr(52),
			Timestamp:          base.Add(-6 * time.Hour),
		},
	}
	cps := s.Synthesize(dwellTrace(60*time.Second), biometrics)
	require.Len(t, cps, 1)
	require.Equal(t, float64(64), *cps[0].HeartRateBPM)
	require.Equal(t, float64(120), *cps[0].ActiveCaloriesKcal)
	require.Equal(t, 800, *cps[0].Steps)
	require.Equal(t, float64(52), *cps[0].HRVMs)
}

func TestShortDwellBetweenMovementDiscarded(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	samples := []models.LocationSample{
		stationary(0, 52.52),
		stationary(10*time.Second, 52.52), // 10 s dwell, noise
		stationary(11*time.Second, 52.60),
		stationary(12*time.Second, 52.70),
	}
	cps := s.Synthesize(samples, nil)
	require.Empty(t, cps)
}

func TestManualCheckpointRunsStressDeltaOnly(t *testing.T) {
	s := synthesizer.NewSynthesizer(zap.NewNop())

	prev := &models.Checkpoint{StressLevel: intPtr(20)}
	note := "coffee break"
	cp := s.ManualCheckpoint(synthesizer.ManualInput{
		Latitude:  52.52,
		Longitude: 13.405,
		Timestamp: base,
		Mood:      models.MoodVeryHappy,
		Note:      &note,
	}, []models.BiometricSample{
		{StressLevel: intPtr(40), Timestamp: base},
	}, prev)

	// User-supplied mood is kept, not recomputed from heart rate
	require.Equal(t, models.MoodVeryHappy, cp.Mood)
	require.Equal(t, models.StressIncreased, cp.StressChange)
	require.Equal(t, "coffee break", *cp.Note)
	require.NotEmpty(t, cp.ID)
}
