package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ConfigReloader re-reads geofences, rules, and maintenance records and swaps
// the pipeline's active snapshot. The pipeline implements it.
type ConfigReloader interface {
	ReloadConfig(ctx context.Context) error
}

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	reloader ConfigReloader
}

func NewAdminHandler(reloader ConfigReloader) *AdminHandler {
	return &AdminHandler{reloader: reloader}
}

// Reload handles POST /v1/admin/reload, reloading the evaluation
// configuration snapshot. In-flight events keep the snapshot they started
// with; the next event sees the new one.
func (h *AdminHandler) Reload(c echo.Context) error {
	if err := h.reloader.ReloadConfig(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reloaded"})
}
