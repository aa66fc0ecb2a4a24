// Package handler contains the HTTP layer.  Handlers bind and validate
// input, orchestrate repository calls (opening transactions where an
// operation must be atomic) and translate sentinel errors into status
// codes.  JWT authentication and role checks run in middleware before
// any handler here is reached.
package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// dbTimeout bounds every database interaction started from a handler.
const dbTimeoutSeconds = 5

// getUserID extracts the user_id injected by the JWT middleware, which
// decodes the subject claim to uint64 before any handler runs.
func getUserID(c echo.Context) (uint64, error) {
	if id, ok := c.Get("user_id").(uint64); ok && id != 0 {
		return id, nil
	}
	return 0, errors.New("invalid user_id in context")
}

// getRole extracts the role claim set by the JWT middleware.
func getRole(c echo.Context) string {
	if r, ok := c.Get("role").(string); ok {
		return r
	}
	return ""
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}
