package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ev-charge-reservation/internal/model"
)

// StationRepo provides persistence for stations and their charger
// configuration.  A station together with its charger_types and
// reservations rows forms one transactional aggregate: every mutation
// of available_points happens inside a transaction that first acquires
// the station row lock via GetForUpdateTx, so the capacity counter can
// never drift from the reservation set.
type StationRepo struct {
	db *sql.DB
}

// NewStationRepo returns a new StationRepo bound to the given database.
func NewStationRepo(db *sql.DB) *StationRepo { return &StationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// that span the station and reservation repositories.
func (r *StationRepo) DB() *sql.DB { return r.db }

// StationUpdate carries the partial fields of an update request.  Nil
// pointers leave the column untouched.  A non-nil ChargerTypes slice
// replaces the whole charger configuration and triggers the capacity
// recomputation.
type StationUpdate struct {
	Name         *string
	Location     *string
	Lat          *float64
	Lng          *float64
	Status       *string
	ChargerTypes []model.ChargerType
}

// Create inserts a station and its charger configuration in one
// transaction.  ChargingPoints and AvailablePoints must already be set
// by the caller to the configuration total.  The generated ID and the
// database timestamps are populated on the passed station.  A duplicate
// name yields ErrDuplicateName.
func (r *StationRepo) Create(ctx context.Context, s *model.Station) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO stations (name, location, lat, lng, charging_points, available_points, status, operator_id)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		s.Name, s.Location, s.Coordinates.Lat, s.Coordinates.Lng,
		s.ChargingPoints, s.AvailablePoints, s.Status, s.OperatorID)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateName
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)

	if err := insertChargerTypesTx(ctx, tx, s.ID, s.ChargerTypes); err != nil {
		return err
	}

	// Read the row back to populate timestamps and defaults.
	const sel = `SELECT created_at, updated_at FROM stations WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, s.ID).Scan(&s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// insertChargerTypesTx bulk-inserts the charger configuration rows for a
// station.  Entries keep their slice order through the position column.
// Passing an empty slice has no effect and returns nil.
func insertChargerTypesTx(ctx context.Context, tx *sql.Tx, stationID uint64, chargers []model.ChargerType) error {
	if len(chargers) == 0 {
		return nil
	}
	query := `INSERT INTO charger_types (station_id, type, power, price, count, position) VALUES `
	args := make([]interface{}, 0, len(chargers)*6)
	for i, ct := range chargers {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, stationID, ct.Type, ct.Power, ct.Price, ct.Count, i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a station with its charger configuration.  It returns
// ErrStationNotFound when no row exists.
func (r *StationRepo) GetByID(ctx context.Context, id uint64) (*model.Station, error) {
	const q = `SELECT id, name, location, lat, lng, charging_points, available_points, status, operator_id, created_at, updated_at
	           FROM stations WHERE id = ?`
	var s model.Station
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Name, &s.Location, &s.Coordinates.Lat, &s.Coordinates.Lng,
		&s.ChargingPoints, &s.AvailablePoints, &s.Status, &s.OperatorID,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	chargers, err := r.chargerTypes(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	s.ChargerTypes = chargers
	return &s, nil
}

// GetForUpdateTx loads a station inside the given transaction while
// taking the station row lock (SELECT ... FOR UPDATE).  Concurrent
// reserve and cancel operations on the same station serialize on this
// lock; a waiter observes the winner's committed state, which is what
// makes the check-then-decrement sequence atomic.  Returns
// ErrStationNotFound when the station does not exist.
func (r *StationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Station, error) {
	const q = `SELECT id, name, location, lat, lng, charging_points, available_points, status, operator_id, created_at, updated_at
	           FROM stations WHERE id = ? FOR UPDATE`
	var s model.Station
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.Name, &s.Location, &s.Coordinates.Lat, &s.Coordinates.Lng,
		&s.ChargingPoints, &s.AvailablePoints, &s.Status, &s.OperatorID,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	chargers, err := r.chargerTypes(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	s.ChargerTypes = chargers
	return &s, nil
}

// queryer abstracts *sql.DB and *sql.Tx for read helpers shared between
// transactional and plain paths.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// chargerTypes loads the ordered charger configuration of a station.
func (r *StationRepo) chargerTypes(ctx context.Context, q queryer, stationID uint64) ([]model.ChargerType, error) {
	const sel = `SELECT type, power, price, count FROM charger_types WHERE station_id = ? ORDER BY position`
	rows, err := q.QueryContext(ctx, sel, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ChargerType, 0, 4)
	for rows.Next() {
		var ct model.ChargerType
		if err := rows.Scan(&ct.Type, &ct.Power, &ct.Price, &ct.Count); err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial update to a station.  When the charger
// configuration changes, the whole operation runs under the station row
// lock: charging_points is recomputed from the new configuration and
// available_points is reconciled against the number of currently active
// reservations rather than blindly reset.  Shrinking the configuration
// below the active reservation count yields ErrConflict so the counter
// can never go negative.  Returns the updated station, or
// ErrStationNotFound / ErrDuplicateName.
func (r *StationRepo) Update(ctx context.Context, id uint64, upd StationUpdate) (*model.Station, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	s, err := r.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		s.Name = *upd.Name
	}
	if upd.Location != nil {
		s.Location = *upd.Location
	}
	if upd.Lat != nil {
		s.Coordinates.Lat = *upd.Lat
	}
	if upd.Lng != nil {
		s.Coordinates.Lng = *upd.Lng
	}
	if upd.Status != nil {
		s.Status = *upd.Status
	}

	if upd.ChargerTypes != nil {
		newTotal := model.TotalPoints(upd.ChargerTypes)

		var active int
		const cnt = `SELECT COUNT(*) FROM reservations WHERE station_id = ? AND status = 'active'`
		if err := tx.QueryRowContext(ctx, cnt, id).Scan(&active); err != nil {
			return nil, err
		}
		if newTotal-active < 0 {
			return nil, ErrConflict
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM charger_types WHERE station_id = ?`, id); err != nil {
			return nil, err
		}
		if err := insertChargerTypesTx(ctx, tx, id, upd.ChargerTypes); err != nil {
			return nil, err
		}
		s.ChargerTypes = upd.ChargerTypes
		s.ChargingPoints = newTotal
		s.AvailablePoints = newTotal - active
	}

	const q = `UPDATE stations SET name = ?, location = ?, lat = ?, lng = ?, status = ?,
	           charging_points = ?, available_points = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q,
		s.Name, s.Location, s.Coordinates.Lat, s.Coordinates.Lng, s.Status,
		s.ChargingPoints, s.AvailablePoints, id); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	if err := tx.QueryRowContext(ctx, `SELECT updated_at FROM stations WHERE id = ?`, id).Scan(&s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return s, nil
}

// Delete removes a station.  Charger configuration and reservations are
// removed by the cascading foreign keys.  Deleting an absent station is
// reported as ErrStationNotFound rather than silently succeeding.
func (r *StationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM stations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStationNotFound
	}
	return nil
}

// AdjustAvailableTx shifts available_points by delta inside an existing
// transaction.  The WHERE clause refuses any adjustment that would take
// the counter below zero or above charging_points and the caller is
// expected to treat zero affected rows as a bug, since all callers
// already hold the station row lock and have re-checked capacity.
func (r *StationRepo) AdjustAvailableTx(ctx context.Context, tx *sql.Tx, stationID uint64, delta int) error {
	const q = `UPDATE stations SET available_points = available_points + ?
	           WHERE id = ? AND available_points + ? BETWEEN 0 AND charging_points`
	res, err := tx.ExecContext(ctx, q, delta, stationID, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// OperatorDetail is the subset of the owning admin's profile exposed
// alongside a station listing.
type OperatorDetail struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

// StationDetail is the listing view of a station: the station fields of
// the data model plus the operator contact details joined from users.
type StationDetail struct {
	ID              uint64              `json:"id"`
	Name            string              `json:"name"`
	Location        string              `json:"location"`
	Coordinates     CoordinatesDetail   `json:"coordinates"`
	ChargerTypes    []ChargerTypeDetail `json:"chargerTypes"`
	ChargingPoints  int                 `json:"chargingPoints"`
	AvailablePoints int                 `json:"availablePoints"`
	Status          string              `json:"status"`
	Operator        *OperatorDetail     `json:"operator,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// CoordinatesDetail mirrors the coordinates sub-object of the wire
// format.
type CoordinatesDetail struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ChargerTypeDetail mirrors one charger configuration entry of the wire
// format.
type ChargerTypeDetail struct {
	Type  string  `json:"type"`
	Power string  `json:"power"`
	Price float64 `json:"price"`
	Count int     `json:"count"`
}

// List returns all stations with their charger configuration and the
// operator's contact details.  Stations are ordered by name.  Charger
// types for all stations are loaded in a single follow-up query.
func (r *StationRepo) List(ctx context.Context) ([]StationDetail, error) {
	const q = `SELECT s.id, s.name, s.location, s.lat, s.lng, s.charging_points, s.available_points, s.status, s.created_at,
	                  u.full_name, u.email, u.phone_number
	           FROM stations s
	           LEFT JOIN users u ON u.id = s.operator_id
	           ORDER BY s.name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]StationDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d StationDetail
		var opName, opEmail, opPhone sql.NullString
		if err := rows.Scan(
			&d.ID, &d.Name, &d.Location, &d.Coordinates.Lat, &d.Coordinates.Lng,
			&d.ChargingPoints, &d.AvailablePoints, &d.Status, &d.CreatedAt,
			&opName, &opEmail, &opPhone,
		); err != nil {
			return nil, err
		}
		if opName.Valid {
			d.Operator = &OperatorDetail{
				FullName:    opName.String,
				Email:       opEmail.String,
				PhoneNumber: opPhone.String,
			}
		}
		d.ChargerTypes = []ChargerTypeDetail{}
		index[d.ID] = len(details)
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return details, nil
	}

	ids := make([]interface{}, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
	}
	chargerQuery := `SELECT station_id, type, power, price, count
	                 FROM charger_types
	                 WHERE station_id IN (` + strings.Join(placeholders, ",") + `)
	                 ORDER BY station_id, position`
	crows, err := r.db.QueryContext(ctx, chargerQuery, ids...)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var sid uint64
		var ct ChargerTypeDetail
		if err := crows.Scan(&sid, &ct.Type, &ct.Power, &ct.Price, &ct.Count); err != nil {
			return nil, err
		}
		idx, ok := index[sid]
		if !ok {
			continue
		}
		details[idx].ChargerTypes = append(details[idx].ChargerTypes, ct)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// isDuplicateKey detects MySQL error 1062 (duplicate entry) without
// depending on the driver's error type.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
