package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autocare-monitor/internal/models"
)

func itemTypes(entries []models.CatalogEntry) map[string]bool {
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		out[e.ItemType] = true
	}
	return out
}

func TestDefault_UniqueTags(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range Default() {
		assert.False(t, seen[e.ItemType], "duplicate item type %s", e.ItemType)
		seen[e.ItemType] = true
		assert.NotEmpty(t, e.AppliesTo, "%s applies to nothing", e.ItemType)
	}
}

func TestDefault_ReturnsCopy(t *testing.T) {
	a := Default()
	a[0].ItemType = "mutated"
	assert.NotEqual(t, "mutated", Default()[0].ItemType)
}

func TestForFuel_Applicability(t *testing.T) {
	tests := []struct {
		fuel     models.FuelType
		includes []string
		excludes []string
	}{
		{models.FuelGasoline, []string{Tires, EngineOil, SparkPlugs, FuelFilter, TimingBelt}, []string{TractionBattery, HybridBattery, AdBlue}},
		{models.FuelDiesel, []string{BrakePads, FuelFilter, GlowPlugs, AdBlue}, []string{SparkPlugs, TractionBattery}},
		{models.FuelHybrid, []string{EngineOil, SparkPlugs, HybridBattery, PowerElectronics}, []string{TractionBattery, AdBlue}},
		{models.FuelElectric, []string{Tires, CabinFilter, Battery12V, TractionBattery}, []string{EngineOil, FuelFilter, SparkPlugs, TimingBelt}},
	}

	for _, tt := range tests {
		t.Run(string(tt.fuel), func(t *testing.T) {
			got := itemTypes(ForFuel(Default(), tt.fuel))
			for _, tag := range tt.includes {
				assert.True(t, got[tag], "%s should apply to %s", tag, tt.fuel)
			}
			for _, tag := range tt.excludes {
				assert.False(t, got[tag], "%s should not apply to %s", tag, tt.fuel)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(EngineOil)
	require.True(t, ok)
	require.NotNil(t, e.IntervalKm)
	require.NotNil(t, e.IntervalMonths)
	assert.Equal(t, 30_000, *e.IntervalKm)
	assert.Equal(t, 12, *e.IntervalMonths)

	_, ok = Lookup("flux_capacitor")
	assert.False(t, ok)
	assert.False(t, IsKnown("flux_capacitor"))
	assert.True(t, IsKnown(Battery12V))
}

func TestEntriesWithoutInterval(t *testing.T) {
	e, ok := Lookup(VehicleFirmware)
	require.True(t, ok)
	assert.False(t, e.HasInterval())
}
