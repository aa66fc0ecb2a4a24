package model

import "time"

// Station statuses.  Only an active station accepts new reservations;
// inactive and maintenance stations remain visible to admins but are
// closed for booking.
const (
	StationActive      = "active"
	StationInactive    = "inactive"
	StationMaintenance = "maintenance"
)

// ChargerCategories lists the charger hardware categories a station may
// configure.  The values mirror the charger_types.type enum column.
var ChargerCategories = []string{
	"AC Level 1",
	"AC Level 2",
	"DC Fast Charging",
	"DC Ultra-Fast Charging",
}

// Coordinates holds the latitude/longitude pair of a station.  The values
// are stored verbatim; no geocoding or validation beyond presence.
type Coordinates struct {
	Lat float64 // stations.lat
	Lng float64 // stations.lng
}

// ChargerType describes one configured charger category at a station:
// its hardware type, advertised power, price per session and how many
// physical chargers of this kind exist.  A station may list the same
// type more than once with different price/count tiers; entries are an
// ordered list, not a map keyed by type.
//
// Fields:
//  Type  – one of ChargerCategories.
//  Power – advertised power rating, free-form string (e.g. "22 kW").
//  Price – price per session, must be >= 0.
//  Count – number of chargers of this kind, must be >= 1.
type ChargerType struct {
	Type  string  // charger_types.type
	Power string  // charger_types.power
	Price float64 // charger_types.price
	Count int     // charger_types.count
}

// Station represents a charging location with a finite pool of charging
// points.  ChargingPoints is derived from the charger configuration and
// AvailablePoints counts the points not claimed by an active
// reservation.  The pair is only ever mutated inside the same database
// transaction that mutates the reservation set, so outside a
// transaction the invariant
//
//	0 <= AvailablePoints <= ChargingPoints == sum(ChargerTypes[i].Count)
//
// always holds.
type Station struct {
	ID              uint64        // stations.id
	Name            string        // stations.name (unique)
	Location        string        // stations.location
	Coordinates     Coordinates   // stations.lat / stations.lng
	ChargerTypes    []ChargerType // charger_types rows, ordered by position
	ChargingPoints  int           // stations.charging_points (derived)
	AvailablePoints int           // stations.available_points
	Status          string        // stations.status
	OperatorID      uint64        // stations.operator_id (owning admin)
	CreatedAt       time.Time     // stations.created_at
	UpdatedAt       time.Time     // stations.updated_at
}

// TotalPoints returns the sum of Count across the given charger
// configuration.  It is the single place the derived charging_points
// value is computed from.
func TotalPoints(chargers []ChargerType) int {
	total := 0
	for _, ct := range chargers {
		total += ct.Count
	}
	return total
}

// ValidChargerCategory reports whether t is one of the enumerated
// charger hardware categories.
func ValidChargerCategory(t string) bool {
	for _, c := range ChargerCategories {
		if c == t {
			return true
		}
	}
	return false
}

// HasChargerType reports whether the station's configuration includes
// the given charger type.  Used when validating a reservation request.
func (s *Station) HasChargerType(t string) bool {
	for _, ct := range s.ChargerTypes {
		if ct.Type == t {
			return true
		}
	}
	return false
}

// Availability buckets used by the station filter.  A station is
// "available" when at least 30% of its points are free, "busy" when
// some but fewer than 30% are free, and "full" when none are.
const (
	BucketAvailable = "available"
	BucketBusy      = "busy"
	BucketFull      = "full"
)

// AvailabilityBucket classifies the station into one of the buckets
// above.  A station with zero configured points is treated as full.
func (s *Station) AvailabilityBucket() string {
	if s.AvailablePoints == 0 {
		return BucketFull
	}
	ratio := float64(s.AvailablePoints) / float64(s.ChargingPoints)
	if ratio >= 0.3 {
		return BucketAvailable
	}
	return BucketBusy
}
