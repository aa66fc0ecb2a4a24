package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTotalPoints(t *testing.T) {
	chargers := []ChargerType{
		{Type: "AC Level 2", Power: "22 kW", Price: 10, Count: 2},
		{Type: "DC Fast Charging", Power: "50 kW", Price: 25, Count: 3},
	}
	assert.Equal(t, 5, TotalPoints(chargers))
	assert.Equal(t, 0, TotalPoints(nil))
}

func TestHasChargerType(t *testing.T) {
	s := &Station{ChargerTypes: []ChargerType{
		{Type: "AC Level 2", Power: "22 kW", Price: 10, Count: 2},
	}}
	assert.True(t, s.HasChargerType("AC Level 2"))
	assert.False(t, s.HasChargerType("DC Fast Charging"))
}

func TestValidChargerCategory(t *testing.T) {
	assert.True(t, ValidChargerCategory("DC Ultra-Fast Charging"))
	assert.False(t, ValidChargerCategory("Tesla Supercharger"))
}

func TestAvailabilityBucket(t *testing.T) {
	cases := []struct {
		name      string
		total     int
		available int
		want      string
	}{
		{"all points free", 10, 10, BucketAvailable},
		{"exactly 30 percent", 10, 3, BucketAvailable},
		{"under 30 percent", 10, 2, BucketBusy},
		{"one of many left", 10, 1, BucketBusy},
		{"no points left", 10, 0, BucketFull},
		{"zero capacity", 0, 0, BucketFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &Station{ChargingPoints: tc.total, AvailablePoints: tc.available}
			assert.Equal(t, tc.want, s.AvailabilityBucket())
		})
	}
}

func TestValidateETA(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateETA(now.Add(30*time.Minute), now))
	assert.NoError(t, ValidateETA(now.Add(ReservationWindow), now))

	assert.ErrorIs(t, ValidateETA(now, now), ErrETANotFuture)
	assert.ErrorIs(t, ValidateETA(now.Add(-time.Minute), now), ErrETANotFuture)
	assert.ErrorIs(t, ValidateETA(now.Add(ReservationWindow+time.Second), now), ErrETATooFar)
}
