// Package queue defines message payloads exchanged over the message broker.
package queue

// Event names published to the reservation events queue.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationExpired   = "reservation.expired"
)

// ReservationEvent is published on every reservation lifecycle
// transition.  It carries enough information for downstream consumers
// to log, notify, or feed analytics without querying the primary
// database.
type ReservationEvent struct {
	Event           string  `json:"event"`
	ReservationID   uint64  `json:"reservation_id"`
	StationID       uint64  `json:"station_id"`
	StationName     string  `json:"station_name"`
	UserID          uint64  `json:"user_id"`
	ChargerType     string  `json:"charger_type"`
	ETA             string  `json:"eta"`
	ReservationFee  float64 `json:"reservation_fee"`
	AvailablePoints int     `json:"available_points"`
	OccurredAt      string  `json:"occurred_at"`
}
