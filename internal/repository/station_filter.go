package repository

import (
	"sort"
	"strings"
)

// StationQuery defines the filter and sort criteria for the station
// browsing view.  Zero values ("" or "all") leave the corresponding
// criterion inactive.
type StationQuery struct {
	Search       string // case-insensitive substring over name, location and charger types
	Availability string // "available", "busy", "full" or "all"
	ChargerType  string // exact charger type or "all"
	SortBy       string // "name", "location" or "availability"
}

// FilterStations produces a filtered, sorted view of the given station
// list.  It is a pure function: no I/O, no mutation of the input slice,
// deterministic given its inputs.  Non-active stations are always
// excluded since they cannot be reserved.  Availability buckets follow
// the 30% rule: "available" when availablePoints/chargingPoints >= 0.3,
// "busy" when the ratio is positive but below 0.3, "full" when no
// points are free.
func FilterStations(stations []StationDetail, q StationQuery) []StationDetail {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]StationDetail, 0, len(stations))
	for _, s := range stations {
		if s.Status != "active" {
			continue
		}
		if search != "" && !matchesSearch(&s, search) {
			continue
		}
		if q.Availability != "" && q.Availability != "all" && availabilityBucket(&s) != q.Availability {
			continue
		}
		if q.ChargerType != "" && q.ChargerType != "all" && !hasCharger(&s, q.ChargerType) {
			continue
		}
		out = append(out, s)
	}

	switch q.SortBy {
	case "availability":
		// Most free points first.
		sort.SliceStable(out, func(i, j int) bool { return out[i].AvailablePoints > out[j].AvailablePoints })
	case "location":
		sort.SliceStable(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	default: // "name"
		sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	}
	return out
}

// matchesSearch checks the lowered search term against name, location
// and configured charger types.
func matchesSearch(s *StationDetail, search string) bool {
	if strings.Contains(strings.ToLower(s.Name), search) {
		return true
	}
	if strings.Contains(strings.ToLower(s.Location), search) {
		return true
	}
	for _, ct := range s.ChargerTypes {
		if strings.Contains(strings.ToLower(ct.Type), search) {
			return true
		}
	}
	return false
}

// hasCharger reports whether the station configures the exact charger
// type.
func hasCharger(s *StationDetail, chargerType string) bool {
	for _, ct := range s.ChargerTypes {
		if ct.Type == chargerType {
			return true
		}
	}
	return false
}

// availabilityBucket classifies a listing row the same way
// model.Station.AvailabilityBucket classifies the domain struct.
func availabilityBucket(s *StationDetail) string {
	if s.AvailablePoints == 0 {
		return "full"
	}
	if float64(s.AvailablePoints)/float64(s.ChargingPoints) >= 0.3 {
		return "available"
	}
	return "busy"
}
