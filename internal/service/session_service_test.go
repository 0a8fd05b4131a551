package service_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/database"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/ingest"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/queue"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/repository"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/service"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/synthesizer"
	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/tracker"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionFixture struct {
	ingestor *ingest.Ingestor
	sessions *service.SessionService
	sync     *service.SyncService
	repo     *repository.TimelineRepository
}

// newSessionFixture wires the full live-tracking path against a real
// database, with an unregistered identity so everything derived lands in the
// queue.
func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "session.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewTimelineRepository(db.DB)
	sq := queue.NewSyncQueue(db.DB, zap.NewNop())
	syncService := service.NewSyncService(sq, &countingUploader{}, &stubIdentity{}, time.Minute, time.Hour, zap.NewNop())

	ingestor := ingest.NewIngestor(128, zap.NewNop())
	tripTracker := tracker.NewTripTracker(ingestor, zap.NewNop())
	synth := synthesizer.NewSynthesizer(zap.NewNop())

	sessions := service.NewSessionService(ingestor, tripTracker, synth, repo, syncService, zap.NewNop())
	ingestor.Start(tripTracker.HandleLocation)
	t.Cleanup(ingestor.Stop)

	return &sessionFixture{
		ingestor: ingestor,
		sessions: sessions,
		sync:     syncService,
		repo:     repo,
	}
}

func (f *sessionFixture) feedLocations(t *testing.T, samples []models.LocationSample) {
	t.Helper()
	for _, s := range samples {
		f.ingestor.PushLocation(s)
	}
	require.Eventually(t, func() bool {
		locs, _ := f.ingestor.Counts()
		return locs == len(samples)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStopWithoutStartReturnsNotTracking(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.sessions.StopSession()
	require.ErrorIs(t, err, tracker.ErrNotTracking)

	timelines, err := f.repo.List()
	require.NoError(t, err)
	require.Empty(t, timelines)
}

func TestStopWithEmptyTracePersistsNothing(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.sessions.StartSession())
	_, err := f.sessions.StopSession()
	require.ErrorIs(t, err, tracker.ErrEmptyTrace)

	f.sessions.Wait()
	timelines, err := f.repo.List()
	require.NoError(t, err)
	require.Empty(t, timelines)
}

func TestSessionLifecyclePersistsAndQueues(t *testing.T) {
	f := newSessionFixture(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, f.sessions.StartSession())

	// A short walk ending with a 60 s dwell
	hr := 72.0
	steps := 400
	f.ingestor.PushBiometric(models.BiometricSample{HeartRateBPM: &hr, Steps: &steps, Timestamp: base})
	f.feedLocations(t, []models.LocationSample{
		{Latitude: 52.520, Longitude: 13.405, SpeedKmh: 5, Timestamp: base},
		{Latitude: 52.521, Longitude: 13.405, SpeedKmh: 5, Timestamp: base.Add(30 * time.Second)},
		{Latitude: 52.521, Longitude: 13.405, Timestamp: base.Add(90 * time.Second)},
	})

	timelineID, err := f.sessions.StopSession()
	require.NoError(t, err)
	require.NotEmpty(t, timelineID)
	f.sessions.Wait()

	got, err := f.repo.GetByID(timelineID)
	require.NoError(t, err)
	require.Len(t, got.Samples, 3)
	require.Len(t, got.Checkpoints, 1)
	require.Equal(t, models.StressUnchanged, got.Checkpoints[0].StressChange)
	require.Equal(t, models.MoodNeutral, got.Checkpoints[0].Mood)

	// One workout, one hourly rollup, one place — all queued because no
	// identity is registered
	require.Equal(t, 3, f.sync.PendingCount())
}

func TestManualCheckpointPatchesStoredTimeline(t *testing.T) {
	f := newSessionFixture(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, f.sessions.StartSession())
	f.feedLocations(t, []models.LocationSample{
		{Latitude: 52.520, Longitude: 13.405, SpeedKmh: 5, Timestamp: base},
		{Latitude: 52.530, Longitude: 13.405, SpeedKmh: 5, Timestamp: base.Add(30 * time.Second)},
	})

	timelineID, err := f.sessions.StopSession()
	require.NoError(t, err)
	f.sessions.Wait()

	queuedBefore := f.sync.PendingCount()

	cp, err := f.sessions.AddManualCheckpoint(synthesizer.ManualInput{
		Latitude:  52.525,
		Longitude: 13.405,
		Timestamp: base.Add(time.Minute),
		Mood:      models.MoodVeryHappy,
	})
	require.NoError(t, err)
	require.Equal(t, models.MoodVeryHappy, cp.Mood)
	require.Equal(t, models.StressUnchanged, cp.StressChange)

	got, err := f.repo.GetByID(timelineID)
	require.NoError(t, err)
	require.Len(t, got.Checkpoints, 1)
	require.Equal(t, cp.ID, got.Checkpoints[0].ID)

	// The manual checkpoint also queues a place creation
	require.Equal(t, queuedBefore+1, f.sync.PendingCount())
}

func TestManualCheckpointWithoutTimelineFails(t *testing.T) {
	f := newSessionFixture(t)

	_, err := f.sessions.AddManualCheckpoint(synthesizer.ManualInput{Timestamp: time.Now()})
	require.Error(t, err)
}

func TestAttachLateCheckpoint(t *testing.T) {
	f := newSessionFixture(t)
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, f.sessions.StartSession())
	f.feedLocations(t, []models.LocationSample{
		{Latitude: 52.520, Longitude: 13.405, SpeedKmh: 5, Timestamp: base},
		{Latitude: 52.530, Longitude: 13.405, SpeedKmh: 5, Timestamp: base.Add(30 * time.Second)},
	})

	timelineID, err := f.sessions.StopSession()
	require.NoError(t, err)
	f.sessions.Wait()

	late := models.Checkpoint{
		ID:           "companion-cp-1",
		Latitude:     52.525,
		Longitude:    13.405,
		Timestamp:    base.Add(time.Minute),
		Mood:         models.MoodHappy,
		StressChange: models.StressUnchanged,
	}
	require.NoError(t, f.sessions.AttachCheckpoint(timelineID, late))

	got, err := f.repo.GetByID(timelineID)
	require.NoError(t, err)
	require.Len(t, got.Checkpoints, 1)
	require.Equal(t, "companion-cp-1", got.Checkpoints[0].ID)
}

func TestRecordSleepSessionQueuesItem(t *testing.T) {
	f := newSessionFixture(t)

	require.NoError(t, f.sessions.RecordSleepSession(models.SleepPayload{
		StartTime:    time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC),
		EndTime:      time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC),
		TotalMinutes: 480,
	}))
	require.Equal(t, 1, f.sync.PendingCount())
}
