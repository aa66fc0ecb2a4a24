package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChargers(t *testing.T) {
	chargers, msg := validateChargers([]chargerTypeReq{
		{Type: "AC Level 2", Power: "22 kW", Price: 10, Count: 2},
		{Type: "AC Level 2", Power: "11 kW", Price: 6, Count: 1}, // repeated type, different tier
		{Type: "DC Fast Charging", Power: "50 kW", Price: 25, Count: 3},
	})
	assert.Empty(t, msg)
	assert.Len(t, chargers, 3)
	assert.Equal(t, "AC Level 2", chargers[0].Type)
}

func TestValidateChargersRejectsEmpty(t *testing.T) {
	_, msg := validateChargers(nil)
	assert.NotEmpty(t, msg)
}

func TestValidateChargersRejectsBadEntries(t *testing.T) {
	_, msg := validateChargers([]chargerTypeReq{{Type: "Tesla Supercharger", Count: 1}})
	assert.Contains(t, msg, "unknown charger type")

	_, msg = validateChargers([]chargerTypeReq{{Type: "AC Level 2", Count: 0}})
	assert.Contains(t, msg, "count")

	_, msg = validateChargers([]chargerTypeReq{{Type: "AC Level 2", Count: 1, Price: -1}})
	assert.Contains(t, msg, "price")
}

func TestValidStationStatus(t *testing.T) {
	assert.True(t, validStationStatus("active"))
	assert.True(t, validStationStatus("inactive"))
	assert.True(t, validStationStatus("maintenance"))
	assert.False(t, validStationStatus("closed"))
	assert.False(t, validStationStatus(""))
}
