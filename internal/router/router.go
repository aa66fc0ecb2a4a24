// Package router wires HTTP routes to handlers.  Route groups carry
// their own middleware: everything under /v1 (except auth) requires a
// valid JWT, admin station management additionally requires the admin
// role, and the user-facing listing sits behind the Redis response
// cache when one is configured.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/ev-charge-reservation/internal/config"
	"github.com/iliyamo/ev-charge-reservation/internal/handler"
	"github.com/iliyamo/ev-charge-reservation/internal/middleware"
	"github.com/iliyamo/ev-charge-reservation/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, h *handler.Health) {
	e.GET("/healthz", h.Check)
}

// RegisterAuth registers the auth endpoints.  Register, login and the
// refresh flows are unauthenticated; logout and /v1/me require a token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.POST("/auth/logout", a.Logout)
	auth.GET("/me", a.Me)
}

// RegisterAdmin registers the admin-scoped endpoints: station
// management plus the dashboard stats and activity feed.
func RegisterAdmin(e *echo.Echo, s *handler.StationHandler, act *handler.ActivityHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.POST("/stations", s.Create)
	g.PATCH("/stations/:id", s.Update)
	g.DELETE("/stations/:id", s.Delete)
	g.GET("/stations", s.ListAdmin)

	g.GET("/admin/stats", act.Stats)
	g.GET("/admin/users/recent", act.RecentUsers)
	g.GET("/admin/activity/recent", act.RecentActivity)
}

// RegisterUser registers the authenticated user endpoints: browsing,
// reserving, cancelling and the profile.  Admins may call these too
// (an admin cancelling someone else's reservation goes through the
// same cancel route).  When a Redis client is available the station
// listing is served through the response cache and every route in the
// group passes the token-bucket limiter.
func RegisterUser(e *echo.Echo, st *handler.StationHandler, res *handler.ReservationHandler, prof *handler.ProfileHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	if rdb != nil {
		g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}

	listStations := []echo.MiddlewareFunc{}
	if rdb != nil {
		listStations = append(listStations, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}
	g.GET("/user/stations", st.ListForUsers, listStations...)

	g.POST("/stations/:id/reserve", res.Reserve)
	g.PATCH("/stations/:id/reservations/:resID/cancel", res.Cancel)
	g.GET("/my-reservations", res.ListMine)

	g.GET("/profile", prof.Get)
	g.PUT("/profile", prof.Update)
	g.PUT("/change-password", prof.ChangePassword)
}
