package models

import (
	"fmt"
	"strings"
	"time"
)

// FuelType is the powertrain category of a vehicle
type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
)

// FuelTypes lists every supported powertrain category
var FuelTypes = []FuelType{FuelGasoline, FuelDiesel, FuelHybrid, FuelElectric}

// ParseFuelType accepts the canonical names and a few common aliases
func ParseFuelType(s string) (FuelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gasoline", "petrol", "gas":
		return FuelGasoline, nil
	case "diesel":
		return FuelDiesel, nil
	case "hybrid":
		return FuelHybrid, nil
	case "electric", "ev", "bev":
		return FuelElectric, nil
	}
	return "", fmt.Errorf("unknown fuel type: %q", s)
}

// IsCombustion reports whether the powertrain burns fuel
func (f FuelType) IsCombustion() bool {
	return f == FuelGasoline || f == FuelDiesel || f == FuelHybrid
}

// Vehicle represents a registered personal vehicle
type Vehicle struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	LicensePlate string    `json:"license_plate"`
	FuelType     FuelType  `json:"fuel_type"`
	BaselineKm   int       `json:"baseline_km"` // odometer at registration
	RegisteredAt time.Time `json:"registered_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// ServiceRecord is one logged maintenance job
type ServiceRecord struct {
	ID          int64     `json:"id"`
	VehicleID   string    `json:"vehicle_id"`
	ItemType    string    `json:"item_type"`
	ServiceDate time.Time `json:"service_date"`
	OdometerKm  int       `json:"odometer_km"`
	Cost        float64   `json:"cost"`
}

// VehicleSummary provides aggregated driving statistics
type VehicleSummary struct {
	VehicleID       string  `json:"vehicle_id"`
	TotalSessions   int     `json:"total_sessions"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	MaxSpeed        float64 `json:"max_speed"`
	Accelerations   int     `json:"accelerations"`
	Brakings        int     `json:"brakings"`
	ServiceRecords  int     `json:"service_records"`
}

// VehicleSnapshot is everything the analytics read for one vehicle, loaded
// together so one evaluation pass sees one consistent state.
type VehicleSnapshot struct {
	Vehicle  Vehicle          `json:"vehicle"`
	History  []ServiceRecord  `json:"history"`
	Sessions []DrivingSession `json:"sessions"`
}
