// Package provider normalizes provider-specific telemetry payloads into
// canonical domain.TelemetryEvent values. Each GPS hardware provider gets its
// own Adapter implementation that isolates all unit and field-name
// differences; everything downstream of the registry is provider-agnostic.
package provider

import (
	"fmt"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

// Adapter converts one provider's raw payload into a canonical event.
// Normalization has no side effects; a payload missing required fields
// (device id, coordinates, timestamp) fails with domain.ErrMalformedPayload.
type Adapter interface {
	// Kind returns the provider identifier this adapter handles.
	Kind() string

	// Normalize parses and converts a single raw payload.
	Normalize(payload []byte) (*domain.TelemetryEvent, error)
}

// Registry holds the registered adapters keyed by provider kind.
type Registry struct {
	adapters map[string]Adapter
	now      func() time.Time
}

// NewRegistry builds a registry with the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter, len(adapters)),
		now:      time.Now,
	}
	for _, a := range adapters {
		r.adapters[a.Kind()] = a
	}
	return r
}

// DefaultRegistry returns a registry with all built-in adapters.
func DefaultRegistry() *Registry {
	return NewRegistry(NewCanonicalAdapter(), NewTraccarAdapter(), NewTeltonikaAdapter())
}

// Normalize dispatches the payload to the adapter registered for kind and
// stamps the provider name and receive time onto the resulting event.
func (r *Registry) Normalize(payload []byte, kind string) (*domain.TelemetryEvent, error) {
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("normalize %q: %w", kind, domain.ErrUnknownProvider)
	}
	event, err := adapter.Normalize(payload)
	if err != nil {
		return nil, err
	}
	event.Provider = kind
	event.ReceivedAt = r.now().UTC()
	return event, nil
}

// Kinds returns the registered provider kinds.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	return kinds
}

const (
	// msToMph converts metres per second to miles per hour.
	msToMph = 2.237
	// knotsToMph converts nautical miles per hour to statute mph.
	knotsToMph = 1.15078
	// kmToMiles converts kilometres to statute miles.
	kmToMiles = 0.621371
)

// normalizeHeading folds an arbitrary bearing into [0, 360).
func normalizeHeading(deg float64) int {
	h := int(deg) % 360
	if h < 0 {
		h += 360
	}
	return h
}
