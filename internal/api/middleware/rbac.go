package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Roles carried in the token's "role" claim. Viewers get read-only access to
// vehicle state and alerts, operators additionally ingest telemetry and manage
// day-to-day dispatch, and admins control fleet configuration: geofences,
// alert rules, and snapshot reloads.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

// RequireRole gates a route group on the role the JWT middleware extracted
// from the token. A request whose role is not in the allow list gets a 403;
// missing or invalid tokens are rejected upstream with a 401.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}
