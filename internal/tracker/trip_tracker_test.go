package tracker_test

import (
	"testing"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/ingest"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/tracker"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTrackingPath(t *testing.T) (*ingest.Ingestor, *tracker.TripTracker) {
	t.Helper()
	in := ingest.NewIngestor(64, zap.NewNop())
	tt := tracker.NewTripTracker(in, zap.NewNop())
	in.Start(tt.HandleLocation)
	t.Cleanup(in.Stop)
	return in, tt
}

func feed(t *testing.T, in *ingest.Ingestor, samples ...models.LocationSample) {
	t.Helper()
	for _, s := range samples {
		in.PushLocation(s)
	}
	require.Eventually(t, func() bool {
		locs, _ := in.Counts()
		return locs > 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopWhileIdleReturnsNotTracking(t *testing.T) {
	_, tt := newTrackingPath(t)

	_, err := tt.Stop()
	require.ErrorIs(t, err, tracker.ErrNotTracking)
	require.Equal(t, tracker.StateIdle, tt.State())
}

func TestDoubleStartRejected(t *testing.T) {
	_, tt := newTrackingPath(t)

	require.NoError(t, tt.Start())
	require.ErrorIs(t, tt.Start(), tracker.ErrAlreadyTracking)
}

func TestStopWithEmptyTrace(t *testing.T) {
	_, tt := newTrackingPath(t)

	require.NoError(t, tt.Start())
	_, err := tt.Stop()
	require.ErrorIs(t, err, tracker.ErrEmptyTrace)
	require.Equal(t, tracker.StateIdle, tt.State())
}

func TestRunningDistanceIsMonotonic(t *testing.T) {
	in, tt := newTrackingPath(t)
	require.NoError(t, tt.Start())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	var prevDistance float64
	for i := 0; i < 6; i++ {
		in.PushLocation(models.LocationSample{
			Latitude:  52.52 + float64(i)*0.001,
			Longitude: 13.405,
			SpeedKmh:  5,
			Timestamp: base.Add(time.Duration(i) * 10 * time.Second),
		})
		want := i + 1
		require.Eventually(t, func() bool {
			locs, _ := in.Counts()
			return locs == want
		}, 2*time.Second, 5*time.Millisecond)

		distance := tt.Status()["running_distance_m"].(float64)
		require.GreaterOrEqual(t, distance, prevDistance)
		prevDistance = distance
	}

	timeline, err := tt.Stop()
	require.NoError(t, err)
	require.GreaterOrEqual(t, timeline.TotalDistanceM, prevDistance-1)
}

func TestStopFinalizesTotals(t *testing.T) {
	in, tt := newTrackingPath(t)
	require.NoError(t, tt.Start())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	feed(t, in,
		models.LocationSample{Latitude: 52.520, Longitude: 13.405, SpeedKmh: 10, Timestamp: base},
		models.LocationSample{Latitude: 52.521, Longitude: 13.405, SpeedKmh: 20, Timestamp: base.Add(10 * time.Second)},
		models.LocationSample{Latitude: 52.522, Longitude: 13.405, SpeedKmh: 12, Timestamp: base.Add(20 * time.Second)},
	)
	require.Eventually(t, func() bool {
		locs, _ := in.Counts()
		return locs == 3
	}, 2*time.Second, 5*time.Millisecond)

	timeline, err := tt.Stop()
	require.NoError(t, err)

	require.Len(t, timeline.Samples, 3)
	// Two ~111m hops
	require.InDelta(t, 222, timeline.TotalDistanceM, 10)
	require.InDelta(t, 14, timeline.AverageSpeedKmh, 0.01)
	require.Equal(t, float64(20), timeline.MaxSpeedKmh)
	require.True(t, timeline.EndTime.After(timeline.StartTime))
	require.Equal(t, tracker.StateIdle, tt.State())
}

func TestAverageSpeedExcludesNonPositive(t *testing.T) {
	in, tt := newTrackingPath(t)
	require.NoError(t, tt.Start())

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	// Second fix is stationary with no native speed, the derived speed is
	// zero and must be excluded from the mean, not averaged in
	feed(t, in,
		models.LocationSample{Latitude: 52.52, Longitude: 13.405, SpeedKmh: 12, Timestamp: base},
		models.LocationSample{Latitude: 52.52, Longitude: 13.405, SpeedKmh: 0, Timestamp: base.Add(10 * time.Second)},
		models.LocationSample{Latitude: 52.52, Longitude: 13.405, SpeedKmh: -1, Timestamp: base.Add(20 * time.Second)},
	)
	require.Eventually(t, func() bool {
		locs, _ := in.Counts()
		return locs == 3
	}, 2*time.Second, 5*time.Millisecond)

	timeline, err := tt.Stop()
	require.NoError(t, err)

	require.Equal(t, float64(12), timeline.AverageSpeedKmh)
	require.Equal(t, float64(12), timeline.MaxSpeedKmh)
}
