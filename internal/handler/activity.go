package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ev-charge-reservation/internal/model"
	"github.com/iliyamo/ev-charge-reservation/internal/repository"
)

// ActivityHandler serves the admin dashboard: aggregate user counts and
// a recent-activity feed merged from signups and active reservations.
type ActivityHandler struct {
	Users        *repository.UserRepo
	Reservations *repository.ReservationRepo
}

func NewActivityHandler(u *repository.UserRepo, r *repository.ReservationRepo) *ActivityHandler {
	return &ActivityHandler{Users: u, Reservations: r}
}

// Stats handles GET /v1/admin/stats.
func (h *ActivityHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	byRole, err := h.Users.CountByRole(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load stats failed"})
	}
	recent, err := h.Users.CountRecentUsers(ctx, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load stats failed"})
	}

	var total int64
	for _, n := range byRole {
		total += n
	}
	return c.JSON(http.StatusOK, echo.Map{
		"totalUsers":    total,
		"recentSignups": recent,
		"usersByRole": echo.Map{
			"user":  byRole[model.RoleUser],
			"admin": byRole[model.RoleAdmin],
		},
	})
}

// RecentUsers handles GET /v1/admin/users/recent: the five newest
// signups.
func (h *ActivityHandler) RecentUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	users, err := h.Users.ListRecentUsers(ctx, 5)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load recent users failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// activityEntry is one event of the merged feed.
type activityEntry struct {
	Kind      string    `json:"kind"` // "signup" or "reservation"
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentActivity handles GET /v1/admin/activity/recent: registrations
// and active reservations interleaved by time, newest first, capped at
// ten entries.
func (h *ActivityHandler) RecentActivity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	users, err := h.Users.ListRecentUsers(ctx, 10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load activity failed"})
	}
	reservations, err := h.Reservations.ListRecentActive(ctx, 10)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load activity failed"})
	}

	entries := make([]activityEntry, 0, len(users)+len(reservations))
	for _, u := range users {
		entries = append(entries, activityEntry{
			Kind:      "signup",
			Message:   u.FullName + " registered",
			Timestamp: u.CreatedAt,
		})
	}
	for _, r := range reservations {
		entries = append(entries, activityEntry{
			Kind:      "reservation",
			Message:   r.UserName + " reserved a point at " + r.StationName,
			Timestamp: r.CreatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if len(entries) > 10 {
		entries = entries[:10]
	}
	return c.JSON(http.StatusOK, echo.Map{"activity": entries})
}
