package ingest

import (
	"sort"
	"sync"

	"github.com/pupwchk/SWE-G04-SPACE-sub000/internal/models"

	"go.uber.org/zap"
)

// Ingestor normalizes pushed location and biometric readings into the active
// session's time-ordered buffers. Producers (OS callbacks, the companion
// device bridge) push through a bounded channel and never block; a single
// drain goroutine applies samples to the buffers.
type Ingestor struct {
	locCh chan models.LocationSample
	bioCh chan models.BiometricSample

	locations  []models.LocationSample
	biometrics []models.BiometricSample

	onLocation func(models.LocationSample)
	logger     *zap.Logger
	mu         sync.RWMutex
	stopChan   chan struct{}
	wg         sync.WaitGroup
}

// NewIngestor creates a new ingestor with the given intake buffer size.
func NewIngestor(bufferSize int, logger *zap.Logger) *Ingestor {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Ingestor{
		locCh:    make(chan models.LocationSample, bufferSize),
		bioCh:    make(chan models.BiometricSample, bufferSize),
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins draining the intake channels. onLocation is invoked for every
// applied location sample, in applied order.
func (in *Ingestor) Start(onLocation func(models.LocationSample)) {
	in.onLocation = onLocation

	in.wg.Add(1)
	go in.drainLoop()

	in.logger.Info("Sample ingestor started",
		zap.Int("buffer_size", cap(in.locCh)),
	)
}

// Stop stops the drain loop after applying everything still buffered.
func (in *Ingestor) Stop() {
	in.mu.Lock()
	select {
	case <-in.stopChan:
		// Already stopped
		in.mu.Unlock()
		return
	default:
		close(in.stopChan)
	}
	in.mu.Unlock()

	in.wg.Wait()
	in.logger.Info("Sample ingestor stopped")
}

// PushLocation offers a location sample to the intake. Never blocks; the
// sample is dropped with a warning when the intake buffer is full.
func (in *Ingestor) PushLocation(sample models.LocationSample) {
	select {
	case in.locCh <- sample:
	default:
		in.logger.Warn("Location intake buffer full, dropping sample",
			zap.Time("timestamp", sample.Timestamp),
		)
	}
}

// PushBiometric offers a biometric sample to the intake. Never blocks.
func (in *Ingestor) PushBiometric(sample models.BiometricSample) {
	select {
	case in.bioCh <- sample:
	default:
		in.logger.Warn("Biometric intake buffer full, dropping sample",
			zap.Time("timestamp", sample.Timestamp),
		)
	}
}

// PushLocationBatch offers a batch of historical samples, typically a
// companion-device replay that may overlap already-ingested live samples.
func (in *Ingestor) PushLocationBatch(samples []models.LocationSample) {
	for _, s := range samples {
		in.PushLocation(s)
	}
}

// Snapshot returns copies of both session buffers.
func (in *Ingestor) Snapshot() ([]models.LocationSample, []models.BiometricSample) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	locations := make([]models.LocationSample, len(in.locations))
	copy(locations, in.locations)
	biometrics := make([]models.BiometricSample, len(in.biometrics))
	copy(biometrics, in.biometrics)
	return locations, biometrics
}

// Reset clears both session buffers.
func (in *Ingestor) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.locations = in.locations[:0]
	in.biometrics = in.biometrics[:0]
}

// Counts returns the number of buffered location and biometric samples.
func (in *Ingestor) Counts() (int, int) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.locations), len(in.biometrics)
}

func (in *Ingestor) drainLoop() {
	defer in.wg.Done()

	for {
		select {
		case sample := <-in.locCh:
			in.applyLocation(sample)
		case sample := <-in.bioCh:
			in.applyBiometric(sample)
		case <-in.stopChan:
			// Apply whatever is still buffered before returning
			for {
				select {
				case sample := <-in.locCh:
					in.applyLocation(sample)
				case sample := <-in.bioCh:
					in.applyBiometric(sample)
				default:
					return
				}
			}
		}
	}
}

// applyLocation inserts the sample preserving timestamp order. The common
// case, a sample at or after the buffer tail, is an append. Late samples
// (clock skew from a companion device is expected) go to their sorted
// position; an exact-timestamp duplicate replaces in place, last write wins.
func (in *Ingestor) applyLocation(sample models.LocationSample) {
	in.mu.Lock()
	n := len(in.locations)
	if n == 0 || !sample.Timestamp.Before(in.locations[n-1].Timestamp) {
		if n > 0 && in.locations[n-1].Timestamp.Equal(sample.Timestamp) {
			in.locations[n-1] = sample
		} else {
			in.locations = append(in.locations, sample)
		}
	} else {
		idx := sort.Search(n, func(i int) bool {
			return in.locations[i].Timestamp.After(sample.Timestamp)
		})
		if idx > 0 && in.locations[idx-1].Timestamp.Equal(sample.Timestamp) {
			in.locations[idx-1] = sample
		} else {
			in.locations = append(in.locations, models.LocationSample{})
			copy(in.locations[idx+1:], in.locations[idx:])
			in.locations[idx] = sample
		}
	}
	in.mu.Unlock()

	if in.onLocation != nil {
		in.onLocation(sample)
	}
}

func (in *Ingestor) applyBiometric(sample models.BiometricSample) {
	in.mu.Lock()
	defer in.mu.Unlock()

	n := len(in.biometrics)
	if n == 0 || !sample.Timestamp.Before(in.biometrics[n-1].Timestamp) {
		if n > 0 && in.biometrics[n-1].Timestamp.Equal(sample.Timestamp) {
			in.biometrics[n-1] = sample
		} else {
			in.biometrics = append(in.biometrics, sample)
		}
		return
	}
	idx := sort.Search(n, func(i int) bool {
		return in.biometrics[i].Timestamp.After(sample.Timestamp)
	})
	if idx > 0 && in.biometrics[idx-1].Timestamp.Equal(sample.Timestamp) {
		in.biometrics[idx-1] = sample
		return
	}
	in.biometrics = append(in.biometrics, models.BiometricSample{})
	copy(in.biometrics[idx+1:], in.biometrics[idx:])
	in.biometrics[idx] = sample
}
