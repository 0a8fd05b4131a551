package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ItemKind tags the payload type of a queued upload.
type ItemKind string

const (
	KindHealthHourly   ItemKind = "health_hourly"
	KindSleepSession   ItemKind = "sleep_session"
	KindWorkoutSession ItemKind = "workout_session"
	KindPlace          ItemKind = "place"
)

// QueueItem is one pending backend upload. The payload is kept as raw JSON so
// mixed kinds share a single durable queue; it is removed only after a
// confirmed successful upload.
type QueueItem struct {
	ID        int64           `json:"id,omitempty"`
	Kind      ItemKind        `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

// HealthHourlyPayload is an hourly health rollup. The backend upsert is keyed
// by the hour bucket, so re-delivery is idempotent.
type HealthHourlyPayload struct {
	HourBucket         time.Time `json:"hourBucket"`
	Steps              int       `json:"steps"`
	ActiveCaloriesKcal float64   `json:"activeCaloriesKcal"`
	DistanceM          float64   `json:"distanceM"`
	AvgHeartRateBPM    *float64  `json:"avgHeartRateBpm,omitempty"`
	MinHeartRateBPM    *float64  `json:"minHeartRateBpm,omitempty"`
	MaxHeartRateBPM    *float64  `json:"maxHeartRateBpm,omitempty"`
	AvgHRVMs           *float64  `json:"avgHrvMs,omitempty"`
}

// SleepPayload is one sleep session, typically relayed from a paired device.
type SleepPayload struct {
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	TotalMinutes int       `json:"totalMinutes"`
	RemMinutes   int       `json:"remMinutes"`
	DeepMinutes  int       `json:"deepMinutes"`
	CoreMinutes  int       `json:"coreMinutes"`
	AwakeMinutes int       `json:"awakeMinutes"`
}

// WorkoutPayload is one workout session derived from a finished trip.
type WorkoutPayload struct {
	Kind               string    `json:"kind"`
	StartTime          time.Time `json:"startTime"`
	EndTime            time.Time `json:"endTime"`
	DistanceM          float64   `json:"distanceM"`
	ActiveCaloriesKcal float64   `json:"activeCaloriesKcal"`
	AvgHeartRateBPM    *float64  `json:"avgHeartRateBpm,omitempty"`
	MaxHeartRateBPM    *float64  `json:"maxHeartRateBpm,omitempty"`
	AvgSpeedKmh        float64   `json:"avgSpeedKmh"`
}

// PlacePayload is one place creation derived from a checkpoint.
type PlacePayload struct {
	Name         string        `json:"name"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	Note         *string       `json:"note,omitempty"`
	VisitedAt    time.Time     `json:"visitedAt"`
	StayDuration time.Duration `json:"stayDuration"`
}

// NewQueueItem marshals a typed payload into a QueueItem.
func NewQueueItem(kind ItemKind, payload interface{}) (QueueItem, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return QueueItem{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return QueueItem{Kind: kind, Payload: data}, nil
}

// DecodePayload unmarshals the raw payload into the typed struct for the
// item's kind.
func (qi QueueItem) DecodePayload(dst interface{}) error {
	if err := json.Unmarshal(qi.Payload, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", qi.Kind, err)
	}
	return nil
}
