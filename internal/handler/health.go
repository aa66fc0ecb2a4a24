package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health reports liveness plus database reachability.
type Health struct {
	DB *sql.DB
}

func NewHealth(db *sql.DB) *Health { return &Health{DB: db} }

func (h *Health) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
