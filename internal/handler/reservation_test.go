package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ev-charge-reservation/internal/repository"
)

const (
	testStationID     = 3
	testReservationID = 7
	testUserID        = 42
)

func newMockedReservationHandler(t *testing.T) (*ReservationHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewReservationHandler(
		repository.NewStationRepo(db),
		repository.NewReservationRepo(db),
		nil, // no broker in tests; publishing is best-effort anyway
	), mock
}

func reserveCtx(body string, userID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/stations/3/reserve", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")
	c.Set("user_id", userID)
	c.Set("role", role)
	return c, rec
}

func cancelCtx(userID uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/v1/stations/3/reservations/7/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id", "resID")
	c.SetParamValues("3", "7")
	c.Set("user_id", userID)
	c.Set("role", role)
	return c, rec
}

func reserveBody(eta time.Time) string {
	return fmt.Sprintf(`{"chargerType":"AC Level 2","eta":"%s","reservationFee":10}`,
		eta.UTC().Format(time.RFC3339))
}

func stationColumns() []string {
	return []string{"id", "name", "location", "lat", "lng", "charging_points",
		"available_points", "status", "operator_id", "created_at", "updated_at"}
}

func stationRow(available int, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(stationColumns()).
		AddRow(testStationID, "Riverside Hub", "Dock Street", 51.5, -0.1, 5, available, status, 1, now, now)
}

func chargerRows(types ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"type", "power", "price", "count"})
	for _, typ := range types {
		rows.AddRow(typ, "22 kW", 10.0, 5)
	}
	return rows
}

func reservationRow(ownerID uint64, status string) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "station_id", "user_id", "charger_type",
		"eta", "reservation_fee", "status", "created_at", "expires_at"}).
		AddRow(testReservationID, testStationID, ownerID, "AC Level 2",
			now.Add(time.Hour), 10.0, status, now, now.Add(12*time.Hour))
}

// expectStationLock wires the SELECT ... FOR UPDATE plus the charger
// configuration load every transactional path begins with.
func expectStationLock(mock sqlmock.Sqlmock, station *sqlmock.Rows, chargers *sqlmock.Rows) {
	mock.ExpectQuery("FOR UPDATE").WithArgs(testStationID).WillReturnRows(station)
	mock.ExpectQuery("FROM charger_types").WithArgs(testStationID).WillReturnRows(chargers)
}

func TestReserveInsertsAndDecrementsInOneTransaction(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(5, "active"), chargerRows("AC Level 2"))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(testStationID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO reservations").
		WillReturnResult(sqlmock.NewResult(testReservationID, 1))
	mock.ExpectQuery("SELECT created_at FROM reservations").WithArgs(testReservationID).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))
	mock.ExpectExec("UPDATE stations SET available_points").
		WithArgs(-1, testStationID, -1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := reserveCtx(reserveBody(time.Now().Add(time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"availablePoints":4`)
	// Ordered expectations prove the insert and the counter decrement
	// both ran between Begin and Commit.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveFailsWhenNoCapacity(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(0, "active"), chargerRows("AC Level 2"))
	mock.ExpectRollback()

	c, rec := reserveCtx(reserveBody(time.Now().Add(time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "no charging points available")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsInactiveStation(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(5, "maintenance"), chargerRows("AC Level 2"))
	mock.ExpectRollback()

	c, rec := reserveCtx(reserveBody(time.Now().Add(time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsUnknownStation(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(testStationID).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := reserveCtx(reserveBody(time.Now().Add(time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsChargerNotOffered(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(5, "active"), chargerRows("DC Fast Charging"))
	mock.ExpectRollback()

	c, rec := reserveCtx(reserveBody(time.Now().Add(time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "charger type")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsDuplicateActiveReservation(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(5, "active"), chargerRows("AC Level 2"))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(testStationID, testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	c, rec := reserveCtx(reserveBody(time.Now().Add(time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "active reservation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsBadETAWithoutTouchingDatabase(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	// Past ETA.
	c, rec := reserveCtx(reserveBody(time.Now().Add(-time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Beyond the twelve hour window.
	c, rec = reserveCtx(reserveBody(time.Now().Add(13*time.Hour)), testUserID, "user")
	require.NoError(t, h.Reserve(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No transaction was ever opened.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelByOwnerRestoresPoint(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(4, "active"), chargerRows("AC Level 2"))
	mock.ExpectQuery("FROM reservations").WithArgs(testReservationID, testStationID).
		WillReturnRows(reservationRow(testUserID, "active"))
	mock.ExpectExec("UPDATE reservations SET status").WithArgs("cancelled", testReservationID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE stations SET available_points").
		WithArgs(1, testStationID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := cancelCtx(testUserID, "user")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	// The point returns to the pool: 4 before the cancel, 5 after.
	assert.Contains(t, rec.Body.String(), `"availablePoints":5`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelByAdminIgnoresOwnership(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(4, "active"), chargerRows("AC Level 2"))
	mock.ExpectQuery("FROM reservations").WithArgs(testReservationID, testStationID).
		WillReturnRows(reservationRow(99, "active")) // someone else's reservation
	mock.ExpectExec("UPDATE reservations SET status").WithArgs("cancelled", testReservationID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE stations SET available_points").
		WithArgs(1, testStationID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := cancelCtx(testUserID, "admin")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelByNonOwnerForbidden(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(4, "active"), chargerRows("AC Level 2"))
	mock.ExpectQuery("FROM reservations").WithArgs(testReservationID, testStationID).
		WillReturnRows(reservationRow(99, "active"))
	mock.ExpectRollback()

	c, rec := cancelCtx(testUserID, "user")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelNonActiveReservationConflicts(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(5, "active"), chargerRows("AC Level 2"))
	mock.ExpectQuery("FROM reservations").WithArgs(testReservationID, testStationID).
		WillReturnRows(reservationRow(testUserID, "cancelled"))
	mock.ExpectRollback()

	c, rec := cancelCtx(testUserID, "user")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "active")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelUnknownReservationNotFound(t *testing.T) {
	h, mock := newMockedReservationHandler(t)

	mock.ExpectBegin()
	expectStationLock(mock, stationRow(5, "active"), chargerRows("AC Level 2"))
	mock.ExpectQuery("FROM reservations").WithArgs(testReservationID, testStationID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := cancelCtx(testUserID, "user")
	require.NoError(t, h.Cancel(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
