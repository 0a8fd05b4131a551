package models

import "time"

// MoodTag classifies the user's mood at a checkpoint.
type MoodTag string

const (
	MoodVeryHappy MoodTag = "very_happy"
	MoodHappy     MoodTag = "happy"
	MoodNeutral   MoodTag = "neutral"
	MoodSad       MoodTag = "sad"
	MoodVerySad   MoodTag = "very_sad"
)

// StressDelta describes how the stress level moved relative to the previous
// checkpoint of the same timeline.
type StressDelta string

const (
	StressIncreased StressDelta = "increased"
	StressUnchanged StressDelta = "unchanged"
	StressDecreased StressDelta = "decreased"
)

// Checkpoint is a semantic stop synthesized from a dwell interval, or created
// manually by the user. Immutable once created; owned by its Timeline.
type Checkpoint struct {
	ID                 string        `json:"id"`
	Latitude           float64       `json:"latitude"`
	Longitude          float64       `json:"longitude"`
	Timestamp          time.Time     `json:"timestamp"`
	Mood               MoodTag       `json:"mood"`
	StayDuration       time.Duration `json:"stayDuration"`
	StressChange       StressDelta   `json:"stressChange"`
	Note               *string       `json:"note,omitempty"`
	HeartRateBPM       *float64      `json:"heartRateBpm,omitempty"`
	ActiveCaloriesKcal *float64      `json:"activeCaloriesKcal,omitempty"`
	Steps              *int          `json:"steps,omitempty"`
	DistanceM          *float64      `json:"distanceM,omitempty"`
	HRVMs              *float64      `json:"hrvMs,omitempty"`
	StressLevel        *int          `json:"stressLevel,omitempty"`
}

// Timeline is one recorded trip: the full sample trace plus aggregates and
// synthesized checkpoints. Samples are frozen at finalize; the checkpoint list
// is append-only afterwards (late checkpoints from a paired device).
type Timeline struct {
	ID              string           `json:"id"`
	StartTime       time.Time        `json:"startTime"`
	EndTime         time.Time        `json:"endTime"`
	Samples         []LocationSample `json:"samples"`
	TotalDistanceM  float64          `json:"totalDistanceM"`
	AverageSpeedKmh float64          `json:"averageSpeedKmh"`
	MaxSpeedKmh     float64          `json:"maxSpeedKmh"`
	Duration        time.Duration    `json:"duration"`
	Checkpoints     []Checkpoint     `json:"checkpoints"`
}
