package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-charge-reservation/internal/model"
	"github.com/iliyamo/ev-charge-reservation/internal/repository"
)

// StationHandler serves admin station management and the authenticated
// station listing users browse before reserving.
type StationHandler struct {
	Stations *repository.StationRepo
}

func NewStationHandler(s *repository.StationRepo) *StationHandler {
	if s == nil {
		panic("nil repository passed to NewStationHandler")
	}
	return &StationHandler{Stations: s}
}

type coordinatesReq struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type chargerTypeReq struct {
	Type  string  `json:"type"`
	Power string  `json:"power"`
	Price float64 `json:"price"`
	Count int     `json:"count"`
}

type createStationReq struct {
	Name         string           `json:"name"`
	Location     string           `json:"location"`
	Coordinates  coordinatesReq   `json:"coordinates"`
	ChargerTypes []chargerTypeReq `json:"chargerTypes"`
	Status       string           `json:"status"`
}

type updateStationReq struct {
	Name         *string          `json:"name"`
	Location     *string          `json:"location"`
	Coordinates  *coordinatesReq  `json:"coordinates"`
	ChargerTypes []chargerTypeReq `json:"chargerTypes"`
	Status       *string          `json:"status"`
}

// validateChargers checks a charger configuration and converts it to
// model form.  The configuration is an ordered list; repeating a type
// with a different price tier is allowed.
func validateChargers(in []chargerTypeReq) ([]model.ChargerType, string) {
	if len(in) == 0 {
		return nil, "chargerTypes must be a non-empty list"
	}
	out := make([]model.ChargerType, 0, len(in))
	for _, ct := range in {
		t := strings.TrimSpace(ct.Type)
		if !model.ValidChargerCategory(t) {
			return nil, "unknown charger type: " + ct.Type
		}
		if ct.Count < 1 {
			return nil, "charger count must be at least 1"
		}
		if ct.Price < 0 {
			return nil, "charger price cannot be negative"
		}
		out = append(out, model.ChargerType{Type: t, Power: strings.TrimSpace(ct.Power), Price: ct.Price, Count: ct.Count})
	}
	return out, ""
}

func validStationStatus(s string) bool {
	return s == model.StationActive || s == model.StationInactive || s == model.StationMaintenance
}

// stationResp shapes a single station for admin responses.
func stationResp(s *model.Station) echo.Map {
	chargers := make([]echo.Map, 0, len(s.ChargerTypes))
	for _, ct := range s.ChargerTypes {
		chargers = append(chargers, echo.Map{
			"type": ct.Type, "power": ct.Power, "price": ct.Price, "count": ct.Count,
		})
	}
	return echo.Map{
		"id":              s.ID,
		"name":            s.Name,
		"location":        s.Location,
		"coordinates":     echo.Map{"lat": s.Coordinates.Lat, "lng": s.Coordinates.Lng},
		"chargerTypes":    chargers,
		"chargingPoints":  s.ChargingPoints,
		"availablePoints": s.AvailablePoints,
		"status":          s.Status,
		"createdAt":       s.CreatedAt,
		"updatedAt":       s.UpdatedAt,
	}
}

// Create handles POST /v1/stations.  Capacity is derived from the
// charger configuration: chargingPoints = availablePoints = sum(count).
func (h *StationHandler) Create(c echo.Context) error {
	operatorID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createStationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if req.Name == "" || req.Location == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and location are required"})
	}
	chargers, msg := validateChargers(req.ChargerTypes)
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = model.StationActive
	}
	if !validStationStatus(status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	total := model.TotalPoints(chargers)
	station := &model.Station{
		Name:            req.Name,
		Location:        req.Location,
		Coordinates:     model.Coordinates{Lat: req.Coordinates.Lat, Lng: req.Coordinates.Lng},
		ChargerTypes:    chargers,
		ChargingPoints:  total,
		AvailablePoints: total,
		Status:          status,
		OperatorID:      operatorID,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Stations.Create(ctx, station); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "station name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create station failed"})
	}
	return c.JSON(http.StatusCreated, stationResp(station))
}

// Update handles PATCH /v1/stations/:id.  When the charger
// configuration changes, capacity is recomputed and the available
// counter reconciled against active reservations; an update that would
// leave fewer points than active reservations is rejected.
func (h *StationHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
	}
	var req updateStationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	upd := repository.StationUpdate{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name cannot be empty"})
		}
		upd.Name = &name
	}
	if req.Location != nil {
		loc := strings.TrimSpace(*req.Location)
		if loc == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "location cannot be empty"})
		}
		upd.Location = &loc
	}
	if req.Coordinates != nil {
		upd.Lat = &req.Coordinates.Lat
		upd.Lng = &req.Coordinates.Lng
	}
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if !validStationStatus(status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		upd.Status = &status
	}
	if req.ChargerTypes != nil {
		chargers, msg := validateChargers(req.ChargerTypes)
		if msg != "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
		}
		upd.ChargerTypes = chargers
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	station, err := h.Stations.Update(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		case errors.Is(err, repository.ErrDuplicateName):
			return c.JSON(http.StatusConflict, echo.Map{"error": "station name already exists"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "new configuration has fewer points than active reservations"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update station failed"})
		}
	}
	return c.JSON(http.StatusOK, stationResp(station))
}

// Delete handles DELETE /v1/stations/:id.  Reservations cascade with
// the station row; deleting an absent station is a 404, not a silent
// success.
func (h *StationHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Stations.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete station failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "station deleted"})
}

// ListAdmin handles GET /v1/stations: every station regardless of
// status, with operator details joined.
func (h *StationHandler) ListAdmin(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	stations, err := h.Stations.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list stations failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stations": stations})
}

// ListForUsers handles GET /v1/user/stations: only active stations,
// filtered and sorted by the query parameters search, availability,
// chargerType and sortBy.
func (h *StationHandler) ListForUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	stations, err := h.Stations.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list stations failed"})
	}

	q := repository.StationQuery{
		Search:       c.QueryParam("search"),
		Availability: c.QueryParam("availability"),
		ChargerType:  c.QueryParam("chargerType"),
		SortBy:       c.QueryParam("sortBy"),
	}
	return c.JSON(http.StatusOK, echo.Map{"stations": repository.FilterStations(stations, q)})
}
