package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxOrgID extracts the tenant id injected by the Auth middleware and
// performs a fast-fail check before any pipeline call: every ingested event
// must be attributable to an organization, so a JWT without the org_id claim
// is structurally valid but operationally unusable.
func ctxOrgID(c echo.Context) (string, error) {
	orgID, _ := c.Get("org_id").(string)
	if orgID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token missing organization identity")
	}
	return orgID, nil
}
