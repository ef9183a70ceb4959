package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// StateReader reads the in-memory per-vehicle state. The state store
// implements it.
type StateReader interface {
	Snapshot(vehicleID string) (*domain.VehicleState, bool)
}

// VehicleHandler exposes read access to tracked vehicle state.
type VehicleHandler struct {
	states StateReader
}

func NewVehicleHandler(states StateReader) *VehicleHandler {
	return &VehicleHandler{states: states}
}

type vehicleStateResponse struct {
	VehicleID  string                 `json:"vehicle_id"`
	LastEvent  *domain.TelemetryEvent `json:"last_event"`
	Geofences  []string               `json:"geofences"`
	ActiveTrip *domain.Trip           `json:"active_trip,omitempty"`
}

// State handles GET /v1/vehicles/:id/state and returns the vehicle's current
// tracked state. Vehicles belonging to other organizations read as untracked.
func (h *VehicleHandler) State(c echo.Context) error {
	orgID, err := ctxOrgID(c)
	if err != nil {
		return err
	}

	state, ok := h.states.Snapshot(c.Param("id"))
	if !ok || state.LastEvent == nil || state.LastEvent.OrganizationID != orgID {
		return domain.ErrVehicleNotTracked
	}

	geofences := make([]string, 0, len(state.GeofenceMembership))
	for id := range state.GeofenceMembership {
		geofences = append(geofences, id)
	}

	return c.JSON(http.StatusOK, vehicleStateResponse{
		VehicleID:  state.LastEvent.VehicleID,
		LastEvent:  state.LastEvent,
		Geofences:  geofences,
		ActiveTrip: state.ActiveTrip,
	})
}
