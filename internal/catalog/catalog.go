// Package catalog holds the static maintenance interval table shipped with
// the application.
package catalog

import (
	"autocare-monitor/internal/models"
)

// Version identifies the revision of the interval table
const Version = "2025.1"

// Item type tags
const (
	Tires            = "tires"
	BrakePads        = "brake_pads"
	BrakeDiscs       = "brake_discs"
	CabinFilter      = "cabin_filter"
	BrakeFluid       = "brake_fluid"
	Battery12V       = "battery_12v"
	EngineOil        = "engine_oil"
	OilFilter        = "oil_filter"
	EngineAirFilter  = "engine_air_filter"
	ExhaustSystem    = "exhaust_system"
	Coolant          = "coolant"
	TimingBelt       = "timing_belt"
	SparkPlugs       = "spark_plugs"
	FuelFilter       = "fuel_filter"
	IgnitionCoils    = "ignition_coils"
	InjectorCleaning = "injector_cleaning"
	AirIntake        = "air_intake"
	DieselParticle   = "diesel_particulate_filter"
	AdBlue           = "adblue"
	DieselInjectors  = "diesel_injectors"
	GlowPlugs        = "glow_plugs"
	HybridBattery    = "hybrid_battery"
	RegenSystem      = "regenerative_system"
	PowerElectronics = "power_electronics"
	MotorBrake       = "electric_motor_brake"
	TractionBattery  = "traction_battery"
	BatteryCoolant   = "battery_coolant"
	VehicleFirmware  = "vehicle_firmware"
	HighVoltageWires = "high_voltage_wiring"
	ChargingPort     = "charging_connectors"
	RegenBrake       = "regenerative_brake"
)

var (
	all        = []models.FuelType{models.FuelGasoline, models.FuelDiesel, models.FuelHybrid, models.FuelElectric}
	combustion = []models.FuelType{models.FuelGasoline, models.FuelDiesel, models.FuelHybrid}
	gasoline   = []models.FuelType{models.FuelGasoline}
	sparkFuels = []models.FuelType{models.FuelGasoline, models.FuelHybrid}
	diesel     = []models.FuelType{models.FuelDiesel}
	hybrid     = []models.FuelType{models.FuelHybrid}
	electric   = []models.FuelType{models.FuelElectric}
	electrics  = []models.FuelType{models.FuelHybrid, models.FuelElectric}
)

func km(v int) *int     { return &v }
func months(v int) *int { return &v }

var table = []models.CatalogEntry{
	// universal
	{ItemType: Tires, Description: "Tire condition", IntervalKm: km(60_000), IntervalMonths: months(60), AppliesTo: all},
	{ItemType: BrakePads, Description: "Brake pads", IntervalKm: km(70_000), AppliesTo: all},
	{ItemType: BrakeDiscs, Description: "Brake discs", IntervalKm: km(140_000), AppliesTo: all},
	{ItemType: CabinFilter, Description: "Cabin air filter", IntervalKm: km(20_000), IntervalMonths: months(12), AppliesTo: all},
	{ItemType: BrakeFluid, Description: "Brake fluid", IntervalKm: km(50_000), IntervalMonths: months(24), AppliesTo: all},
	{ItemType: Battery12V, Description: "12 V battery", IntervalMonths: months(36), AppliesTo: all},

	// combustion engines, hybrids included
	{ItemType: EngineOil, Description: "Engine oil change", IntervalKm: km(30_000), IntervalMonths: months(12), AppliesTo: combustion},
	{ItemType: OilFilter, Description: "Oil filter", IntervalKm: km(30_000), IntervalMonths: months(12), AppliesTo: combustion},
	{ItemType: EngineAirFilter, Description: "Engine air filter", IntervalKm: km(30_000), IntervalMonths: months(12), AppliesTo: combustion},
	{ItemType: ExhaustSystem, Description: "Exhaust system leak check", IntervalKm: km(30_000), AppliesTo: combustion},
	{ItemType: Coolant, Description: "Coolant / antifreeze", IntervalKm: km(40_000), IntervalMonths: months(24), AppliesTo: combustion},
	{ItemType: TimingBelt, Description: "Timing belt / chain", IntervalKm: km(160_000), IntervalMonths: months(60), AppliesTo: combustion},
	{ItemType: FuelFilter, Description: "Fuel filter", IntervalKm: km(40_000), AppliesTo: combustion},
	{ItemType: SparkPlugs, Description: "Spark plugs", IntervalKm: km(100_000), AppliesTo: sparkFuels},

	// gasoline
	{ItemType: IgnitionCoils, Description: "Ignition coils", IntervalKm: km(160_000), AppliesTo: gasoline},
	{ItemType: InjectorCleaning, Description: "Injector cleaning", IntervalKm: km(60_000), AppliesTo: gasoline},
	{ItemType: AirIntake, Description: "Air intake inspection", IntervalKm: km(15_000), IntervalMonths: months(12), AppliesTo: gasoline},

	// diesel
	{ItemType: DieselParticle, Description: "Diesel particulate filter", IntervalKm: km(150_000), AppliesTo: diesel},
	{ItemType: AdBlue, Description: "AdBlue level and dosing", IntervalKm: km(20_000), AppliesTo: diesel},
	{ItemType: DieselInjectors, Description: "Diesel injector nozzles", IntervalKm: km(200_000), AppliesTo: diesel},
	{ItemType: GlowPlugs, Description: "Glow plugs", IntervalKm: km(120_000), AppliesTo: diesel},

	// hybrid
	{ItemType: HybridBattery, Description: "Hybrid battery health and cooling", IntervalKm: km(240_000), IntervalMonths: months(120), AppliesTo: hybrid},
	{ItemType: RegenSystem, Description: "Regenerative system check", IntervalKm: km(30_000), IntervalMonths: months(24), AppliesTo: hybrid},
	{ItemType: MotorBrake, Description: "Electric motor brake check", IntervalKm: km(40_000), IntervalMonths: months(12), AppliesTo: hybrid},
	{ItemType: PowerElectronics, Description: "Power electronics", AppliesTo: electrics},

	// electric
	{ItemType: TractionBattery, Description: "Traction battery health and balance", IntervalMonths: months(48), AppliesTo: electric},
	{ItemType: BatteryCoolant, Description: "Battery coolant", IntervalKm: km(40_000), IntervalMonths: months(24), AppliesTo: electric},
	{ItemType: ChargingPort, Description: "Charging connectors", IntervalMonths: months(24), AppliesTo: electric},
	{ItemType: RegenBrake, Description: "Regenerative brake", IntervalKm: km(15_000), IntervalMonths: months(12), AppliesTo: electric},
	{ItemType: VehicleFirmware, Description: "Vehicle software / firmware", AppliesTo: electric},
	{ItemType: HighVoltageWires, Description: "High-voltage wiring inspection", AppliesTo: electric},
}

// Default returns a copy of the shipped catalog
func Default() []models.CatalogEntry {
	out := make([]models.CatalogEntry, len(table))
	copy(out, table)
	return out
}

// ForFuel keeps the entries that apply to the given powertrain, preserving order
func ForFuel(entries []models.CatalogEntry, fuel models.FuelType) []models.CatalogEntry {
	var out []models.CatalogEntry
	for _, e := range entries {
		if e.Applies(fuel) {
			out = append(out, e)
		}
	}
	return out
}

// Lookup finds an entry by item type tag
func Lookup(itemType string) (models.CatalogEntry, bool) {
	for _, e := range table {
		if e.ItemType == itemType {
			return e, true
		}
	}
	return models.CatalogEntry{}, false
}

// IsKnown reports whether the tag names a catalog item
func IsKnown(itemType string) bool {
	_, ok := Lookup(itemType)
	return ok
}
