// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting SQL errors.
package repository

import "errors"

// ErrStationNotFound is returned when a station lookup fails. Handlers
// should translate this into an HTTP 404 response.
var ErrStationNotFound = errors.New("station not found")

// ErrReservationNotFound is returned when a reservation lookup fails
// within an existing station. Handlers should translate this into an
// HTTP 404 response.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrConflict is returned when an available_points adjustment would
// leave the counter outside [0, charging_points], or when a new charger
// configuration has fewer points than the station's active
// reservations. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrDuplicateName is returned when creating or renaming a station
// would violate the unique station name constraint.
var ErrDuplicateName = errors.New("station name already exists")
