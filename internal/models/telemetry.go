package models

import "time"

// RawSample represents a single motion reading taken during an active trip
type RawSample struct {
	ID        int64     `json:"id,omitempty"`
	VehicleID string    `json:"vehicle_id"`
	Timestamp time.Time `json:"timestamp"`
	Speed     float64   `json:"speed"` // m/s
	AccelX    float64   `json:"accel_x"`
	AccelY    float64   `json:"accel_y"`
	AccelZ    float64   `json:"accel_z"`
	GyroX     float64   `json:"gyro_x"`
	GyroY     float64   `json:"gyro_y"`
	GyroZ     float64   `json:"gyro_z"`
}

// DrivingSession is the summary of one completed trip
type DrivingSession struct {
	ID             int64     `json:"id"`
	VehicleID      string    `json:"vehicle_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	MaxSpeed       float64   `json:"max_speed"`     // m/s
	AverageSpeed   float64   `json:"average_speed"` // m/s
	Accelerations  int       `json:"accelerations"`
	Brakings       int       `json:"brakings"`
	DistanceMeters float64   `json:"distance_meters"`
}

// DistanceKm returns the session distance in kilometres
func (s DrivingSession) DistanceKm() float64 {
	return s.DistanceMeters / 1000.0
}

// Duration returns the session length, never negative
func (s DrivingSession) Duration() time.Duration {
	d := s.EndTime.Sub(s.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// HarshEvents returns accelerations plus brakings
func (s DrivingSession) HarshEvents() int {
	return s.Accelerations + s.Brakings
}

// SessionQuery represents query parameters for session searches
type SessionQuery struct {
	VehicleID string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// TripProgress is the live view of an in-flight trip
type TripProgress struct {
	TripID         string    `json:"trip_id"`
	VehicleID      string    `json:"vehicle_id"`
	StartTime      time.Time `json:"start_time"`
	Samples        int       `json:"samples"`
	DistanceMeters float64   `json:"distance_meters"`
	MaxSpeed       float64   `json:"max_speed"`
	Accelerations  int       `json:"accelerations"`
	Brakings       int       `json:"brakings"`
}
