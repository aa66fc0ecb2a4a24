package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ev-charge-reservation/internal/model"
)

// ReservationRepo provides persistence for reservations.  Reservations
// belong to a station and every method that mutates them is a Tx
// variant: the caller opens the transaction, acquires the station row
// lock through StationRepo.GetForUpdateTx first, and commits after the
// matching available_points adjustment.  All timestamps are stored in
// UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a new active reservation within the scope of an
// existing transaction.  It populates the generated ID and database
// timestamps on the provided record.  The caller must have verified all
// reserve preconditions under the station row lock before calling.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (station_id, user_id, charger_type, eta, reservation_fee, status, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.StationID, res.UserID, res.ChargerType,
		res.ETA.UTC(), res.ReservationFee, res.Status, res.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)

	const sel = `SELECT created_at FROM reservations WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt)
}

// GetByIDTx loads a reservation within a transaction, scoped to the
// given station so a reservation ID from another station reads as
// absent.  Returns ErrReservationNotFound when no row matches.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, stationID, reservationID uint64) (*model.Reservation, error) {
	const q = `SELECT id, station_id, user_id, charger_type, eta, reservation_fee, status, created_at, expires_at
	           FROM reservations WHERE id = ? AND station_id = ?`
	var res model.Reservation
	err := tx.QueryRowContext(ctx, q, reservationID, stationID).Scan(
		&res.ID, &res.StationID, &res.UserID, &res.ChargerType,
		&res.ETA, &res.ReservationFee, &res.Status, &res.CreatedAt, &res.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

// HasActiveForUserTx reports whether the user already holds an active
// reservation at the station.  Evaluated under the station row lock so
// the answer cannot be invalidated by a concurrent reserve.
func (r *ReservationRepo) HasActiveForUserTx(ctx context.Context, tx *sql.Tx, stationID, userID uint64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM reservations WHERE station_id = ? AND user_id = ? AND status = 'active')`
	var exists bool
	if err := tx.QueryRowContext(ctx, q, stationID, userID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateStatusTx transitions a reservation to the given status within a
// transaction.  State checks belong to the caller; this only writes.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, reservationID uint64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, reservationID)
	return err
}

// ReservationDetail is a reservation joined with its station for
// display to the reserving user.
type ReservationDetail struct {
	ID              uint64    `json:"id"`
	StationID       uint64    `json:"stationId"`
	StationName     string    `json:"stationName"`
	StationLocation string    `json:"stationLocation"`
	ChargerType     string    `json:"chargerType"`
	ETA             time.Time `json:"eta"`
	ReservationFee  float64   `json:"reservationFee"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// ListByUser returns all reservations of the given user across
// stations, ordered by arrival time.  When none exist, an empty slice
// is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
	const q = `SELECT res.id, res.station_id, s.name, s.location, res.charger_type,
	                  res.eta, res.reservation_fee, res.status, res.created_at, res.expires_at
	           FROM reservations res
	           JOIN stations s ON s.id = res.station_id
	           WHERE res.user_id = ?
	           ORDER BY res.eta`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		var d ReservationDetail
		if err := rows.Scan(
			&d.ID, &d.StationID, &d.StationName, &d.StationLocation, &d.ChargerType,
			&d.ETA, &d.ReservationFee, &d.Status, &d.CreatedAt, &d.ExpiresAt,
		); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// StationsWithExpired returns the IDs of stations that currently hold
// at least one active reservation past its expiry.  The sweep uses this
// cheap read to decide which station locks it needs to take; the
// expiry itself is re-checked under the lock in ExpireActiveTx.
func (r *ReservationRepo) StationsWithExpired(ctx context.Context, now time.Time) ([]uint64, error) {
	const q = `SELECT DISTINCT station_id FROM reservations WHERE status = 'active' AND expires_at <= ?`
	rows, err := r.db.QueryContext(ctx, q, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ExpireActiveTx marks every active reservation of the station whose
// expires_at has passed as expired and returns the affected IDs.  The
// caller holds the station row lock and must add len(ids) back to
// available_points in the same transaction.
func (r *ReservationRepo) ExpireActiveTx(ctx context.Context, tx *sql.Tx, stationID uint64, now time.Time) ([]uint64, error) {
	const sel = `SELECT id FROM reservations WHERE station_id = ? AND status = 'active' AND expires_at <= ?`
	rows, err := tx.QueryContext(ctx, sel, stationID, now.UTC())
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	const upd = `UPDATE reservations SET status = 'expired'
	             WHERE station_id = ? AND status = 'active' AND expires_at <= ?`
	if _, err := tx.ExecContext(ctx, upd, stationID, now.UTC()); err != nil {
		return nil, err
	}
	return ids, nil
}

// ActiveReservationActivity is one entry of the admin activity feed
// sourced from active reservations.
type ActiveReservationActivity struct {
	ReservationID  uint64    `json:"id"`
	UserName       string    `json:"userName"`
	StationName    string    `json:"stationName"`
	ChargerType    string    `json:"chargerType"`
	ETA            time.Time `json:"eta"`
	ReservationFee float64   `json:"reservationFee"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListRecentActive returns the newest active reservations joined with
// the reserving user and the station, for the admin activity feed.
func (r *ReservationRepo) ListRecentActive(ctx context.Context, limit int) ([]ActiveReservationActivity, error) {
	const q = `SELECT res.id, u.full_name, s.name, res.charger_type, res.eta, res.reservation_fee, res.created_at
	           FROM reservations res
	           JOIN users u ON u.id = res.user_id
	           JOIN stations s ON s.id = res.station_id
	           WHERE res.status = 'active'
	           ORDER BY res.created_at DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ActiveReservationActivity, 0, limit)
	for rows.Next() {
		var a ActiveReservationActivity
		if err := rows.Scan(
			&a.ReservationID, &a.UserName, &a.StationName,
			&a.ChargerType, &a.ETA, &a.ReservationFee, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
