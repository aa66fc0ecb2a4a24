package middleware

// identity.go holds helpers shared across middleware files for turning
// the context values set by JWTAuth into identity strings for cache and
// rate-limit keys.

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a string form of the authenticated user's ID
// for key building, or "anon" when the request is unauthenticated.
// JWTAuth stores the subject as uint64.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case nil:
		return "anon"
	case uint64:
		return strconv.FormatUint(v, 10)
	case string:
		if v == "" {
			return "anon"
		}
		return v
	default:
		return fmt.Sprint(v)
	}
}
