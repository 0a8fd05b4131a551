package models

import "time"

// LocationSample is a single normalized GPS fix. Samples are immutable once
// created and ordered by timestamp within a session buffer.
type LocationSample struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           float64   `json:"altitude"`
	SpeedKmh           float64   `json:"speedKmh"`
	HorizontalAccuracy float64   `json:"horizontalAccuracy"`
	VerticalAccuracy   float64   `json:"verticalAccuracy"`
	Timestamp          time.Time `json:"timestamp"`
}

// BiometricSample is a sparse biometric reading. Any field may be absent;
// samples are aligned to location samples by nearest timestamp, not by pairing.
type BiometricSample struct {
	HeartRateBPM       *float64  `json:"heartRateBpm,omitempty"`
	ActiveCaloriesKcal *float64  `json:"activeCaloriesKcal,omitempty"`
	Steps              *int      `json:"steps,omitempty"`
	DistanceM          *float64  `json:"distanceM,omitempty"`
	HRVMs              *float64  `json:"hrvMs,omitempty"`
	StressLevel        *int      `json:"stressLevel,omitempty"` // 0-100
	Timestamp          time.Time `json:"timestamp"`
}
