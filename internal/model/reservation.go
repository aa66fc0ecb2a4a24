package model

import (
	"errors"
	"time"
)

// Reservation statuses.  A reservation starts active and moves to
// exactly one terminal state: cancelled through the cancel operation,
// expired through the background sweep.  Completed is part of the
// taxonomy for sessions that were actually used; no operation enters
// it yet.
const (
	ReservationActive    = "active"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
	ReservationExpired   = "expired"
)

// ReservationWindow is how far ahead of the current time an ETA may
// lie, and also how long a reservation stays claimable before the
// sweep reclaims its point.
const ReservationWindow = 12 * time.Hour

// Reservation is a time-bounded claim on one charging point at a
// station.  The fee is fixed at creation and never refunded; cancelling
// only returns the point to the pool.
//
// Fields:
//  ID             – primary key identifier.
//  StationID      – station the point belongs to.
//  UserID         – reserving user; owner for authorization purposes.
//  ChargerType    – must match a configured charger type at creation.
//  ETA            – user-declared arrival time, in the future and at
//                   most ReservationWindow ahead.
//  ReservationFee – non-refundable fee, >= 0.
//  Status         – one of the reservation statuses above.
//  CreatedAt      – creation timestamp.
//  ExpiresAt      – CreatedAt + ReservationWindow.
type Reservation struct {
	ID             uint64    // reservations.id
	StationID      uint64    // reservations.station_id
	UserID         uint64    // reservations.user_id
	ChargerType    string    // reservations.charger_type
	ETA            time.Time // reservations.eta
	ReservationFee float64   // reservations.reservation_fee
	Status         string    // reservations.status
	CreatedAt      time.Time // reservations.created_at
	ExpiresAt      time.Time // reservations.expires_at
}

// ETA validation failures.  Handlers map both to a 400 response with
// the error text as the message.
var (
	ErrETANotFuture = errors.New("ETA must be in the future")
	ErrETATooFar    = errors.New("ETA cannot be more than 12 hours ahead")
)

// ValidateETA checks the arrival time against the reservation window
// relative to now.  The ceiling is enforced here rather than trusted to
// the client.
func ValidateETA(eta, now time.Time) error {
	if !eta.After(now) {
		return ErrETANotFuture
	}
	if eta.After(now.Add(ReservationWindow)) {
		return ErrETATooFar
	}
	return nil
}
