package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func filterFixture() []StationDetail {
	return []StationDetail{
		{
			ID: 1, Name: "Riverside Hub", Location: "Dock Street", Status: "active",
			ChargingPoints: 10, AvailablePoints: 6,
			ChargerTypes: []ChargerTypeDetail{{Type: "AC Level 2", Power: "22 kW", Price: 10, Count: 10}},
		},
		{
			ID: 2, Name: "Airport East", Location: "Terminal Road", Status: "active",
			ChargingPoints: 8, AvailablePoints: 1,
			ChargerTypes: []ChargerTypeDetail{{Type: "DC Fast Charging", Power: "50 kW", Price: 25, Count: 8}},
		},
		{
			ID: 3, Name: "Central Garage", Location: "Main Square", Status: "active",
			ChargingPoints: 4, AvailablePoints: 0,
			ChargerTypes: []ChargerTypeDetail{{Type: "AC Level 2", Power: "11 kW", Price: 8, Count: 4}},
		},
		{
			ID: 4, Name: "Depot North", Location: "Industrial Park", Status: "maintenance",
			ChargingPoints: 6, AvailablePoints: 6,
			ChargerTypes: []ChargerTypeDetail{{Type: "AC Level 1", Power: "3 kW", Price: 5, Count: 6}},
		},
	}
}

func stationIDs(stations []StationDetail) []uint64 {
	ids := make([]uint64, 0, len(stations))
	for _, s := range stations {
		ids = append(ids, s.ID)
	}
	return ids
}

func TestFilterStationsExcludesNonActive(t *testing.T) {
	got := FilterStations(filterFixture(), StationQuery{})
	assert.NotContains(t, stationIDs(got), uint64(4))
	assert.Len(t, got, 3)
}

func TestFilterStationsSearch(t *testing.T) {
	// Matches name, location or charger type, case-insensitively.
	got := FilterStations(filterFixture(), StationQuery{Search: "riverside"})
	assert.Equal(t, []uint64{1}, stationIDs(got))

	got = FilterStations(filterFixture(), StationQuery{Search: "terminal"})
	assert.Equal(t, []uint64{2}, stationIDs(got))

	got = FilterStations(filterFixture(), StationQuery{Search: "dc fast"})
	assert.Equal(t, []uint64{2}, stationIDs(got))

	got = FilterStations(filterFixture(), StationQuery{Search: "no such place"})
	assert.Empty(t, got)
}

func TestFilterStationsAvailabilityBuckets(t *testing.T) {
	cases := []struct {
		bucket string
		want   []uint64
	}{
		{"available", []uint64{1}}, // 6/10 = 0.6
		{"busy", []uint64{2}},      // 1/8 = 0.125
		{"full", []uint64{3}},      // 0 left
		{"all", []uint64{2, 3, 1}}, // sorted by name below
	}
	for _, tc := range cases {
		t.Run(tc.bucket, func(t *testing.T) {
			got := FilterStations(filterFixture(), StationQuery{Availability: tc.bucket})
			assert.Equal(t, tc.want, stationIDs(got))
		})
	}
}

func TestFilterStationsChargerType(t *testing.T) {
	got := FilterStations(filterFixture(), StationQuery{ChargerType: "AC Level 2"})
	assert.Equal(t, []uint64{3, 1}, stationIDs(got))

	// Exact match only, unlike the free-text search.
	got = FilterStations(filterFixture(), StationQuery{ChargerType: "AC Level"})
	assert.Empty(t, got)
}

func TestFilterStationsSort(t *testing.T) {
	byName := FilterStations(filterFixture(), StationQuery{SortBy: "name"})
	assert.Equal(t, []uint64{2, 3, 1}, stationIDs(byName))

	byLocation := FilterStations(filterFixture(), StationQuery{SortBy: "location"})
	assert.Equal(t, []uint64{1, 3, 2}, stationIDs(byLocation))

	byAvailability := FilterStations(filterFixture(), StationQuery{SortBy: "availability"})
	assert.Equal(t, []uint64{1, 2, 3}, stationIDs(byAvailability))
}

func TestFilterStationsDoesNotMutateInput(t *testing.T) {
	in := filterFixture()
	FilterStations(in, StationQuery{SortBy: "availability"})
	assert.Equal(t, []uint64{1, 2, 3, 4}, stationIDs(in))
}
