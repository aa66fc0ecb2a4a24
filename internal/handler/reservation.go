package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-charge-reservation/internal/model"
	"github.com/iliyamo/ev-charge-reservation/internal/queue"
	"github.com/iliyamo/ev-charge-reservation/internal/repository"
)

// ReservationHandler implements the reservation lifecycle.  Reserve and
// Cancel both run their checks and writes inside a single transaction
// that holds the station row lock, so the available_points counter and
// the reservation rows can never drift apart: a concurrent reserve on
// the last point blocks on the lock and re-observes the decremented
// counter after the winner commits.
type ReservationHandler struct {
	Stations     *repository.StationRepo
	Reservations *repository.ReservationRepo
	Publisher    *queue.Publisher
}

func NewReservationHandler(s *repository.StationRepo, r *repository.ReservationRepo, pub *queue.Publisher) *ReservationHandler {
	if s == nil || r == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{Stations: s, Reservations: r, Publisher: pub}
}

type reserveReq struct {
	ChargerType    string   `json:"chargerType"`
	ETA            string   `json:"eta"`
	ReservationFee *float64 `json:"reservationFee"`
}

func reservationResp(res *model.Reservation) echo.Map {
	return echo.Map{
		"id":             res.ID,
		"stationId":      res.StationID,
		"userId":         res.UserID,
		"chargerType":    res.ChargerType,
		"eta":            res.ETA,
		"reservationFee": res.ReservationFee,
		"status":         res.Status,
		"createdAt":      res.CreatedAt,
		"expiresAt":      res.ExpiresAt,
	}
}

// Reserve handles POST /v1/stations/:id/reserve.  Input validation runs
// before any database work; the stateful preconditions (station active,
// capacity left, charger configured, no duplicate active reservation
// for the caller) are evaluated under the station row lock in the same
// transaction as the insert and the counter decrement.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	stationID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
	}

	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.ChargerType = strings.TrimSpace(req.ChargerType)
	if req.ChargerType == "" || strings.TrimSpace(req.ETA) == "" || req.ReservationFee == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "chargerType, eta and reservationFee are required"})
	}
	if *req.ReservationFee < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservationFee cannot be negative"})
	}
	eta, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ETA))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "eta must be an RFC3339 timestamp"})
	}
	now := time.Now().UTC()
	if err := model.ValidateETA(eta, now); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	tx, err := h.Stations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	station, err := h.Stations.GetForUpdateTx(ctx, tx, stationID)
	if err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if station.Status != model.StationActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "station is not accepting reservations"})
	}
	if station.AvailablePoints <= 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no charging points available"})
	}
	if !station.HasChargerType(req.ChargerType) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "charger type not offered at this station"})
	}
	hasActive, err := h.Reservations.HasActiveForUserTx(ctx, tx, stationID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if hasActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already have an active reservation at this station"})
	}

	res := &model.Reservation{
		StationID:      stationID,
		UserID:         userID,
		ChargerType:    req.ChargerType,
		ETA:            eta.UTC(),
		ReservationFee: *req.ReservationFee,
		Status:         model.ReservationActive,
		ExpiresAt:      now.Add(model.ReservationWindow),
	}
	if err := h.Reservations.CreateTx(ctx, tx, res); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create reservation failed"})
	}
	if err := h.Stations.AdjustAvailableTx(ctx, tx, stationID, -1); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "no charging points available"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update availability failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	available := station.AvailablePoints - 1
	if h.Publisher != nil {
		h.Publisher.Publish(ctx, queue.ReservationEvent{
			Event:           queue.EventReservationCreated,
			ReservationID:   res.ID,
			StationID:       station.ID,
			StationName:     station.Name,
			UserID:          userID,
			ChargerType:     res.ChargerType,
			ETA:             res.ETA.Format(time.RFC3339),
			ReservationFee:  res.ReservationFee,
			AvailablePoints: available,
			OccurredAt:      now.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation":     reservationResp(res),
		"availablePoints": available,
	})
}

// Cancel handles PATCH /v1/stations/:id/reservations/:resID/cancel.
// Admins may cancel any reservation, users only their own, and only an
// active reservation can be cancelled.  The freed point returns to the
// station counter in the same transaction.  The fee is not refunded.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role := getRole(c)
	stationID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
	}
	resID, err := pathID(c, "resID")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	tx, err := h.Stations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	station, err := h.Stations.GetForUpdateTx(ctx, tx, stationID)
	if err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	res, err := h.Reservations.GetByIDTx(ctx, tx, stationID, resID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if role != model.RoleAdmin && res.UserID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not allowed to cancel this reservation"})
	}
	if res.Status != model.ReservationActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "only active reservations can be cancelled"})
	}

	if err := h.Reservations.UpdateStatusTx(ctx, tx, resID, model.ReservationCancelled); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel reservation failed"})
	}
	if err := h.Stations.AdjustAvailableTx(ctx, tx, stationID, 1); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update availability failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	now := time.Now().UTC()
	available := station.AvailablePoints + 1
	if h.Publisher != nil {
		h.Publisher.Publish(ctx, queue.ReservationEvent{
			Event:           queue.EventReservationCancelled,
			ReservationID:   res.ID,
			StationID:       station.ID,
			StationName:     station.Name,
			UserID:          res.UserID,
			ChargerType:     res.ChargerType,
			ETA:             res.ETA.UTC().Format(time.RFC3339),
			ReservationFee:  res.ReservationFee,
			AvailablePoints: available,
			OccurredAt:      now.Format(time.RFC3339),
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message":         "reservation cancelled",
		"availablePoints": available,
	})
}

// ListMine handles GET /v1/my-reservations: the caller's reservations
// across stations ordered by arrival time.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	details, err := h.Reservations.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list reservations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": details})
}
