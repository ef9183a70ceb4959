package ports

import "context"

// SpeedLimitAPI is the external lookup for the legal speed limit near a
// coordinate, in mph. Calls are expected to be slow and unreliable; the
// resolver wraps them with a cache, a timeout, and a default fallback.
type SpeedLimitAPI interface {
	Lookup(ctx context.Context, lat, lng float64) (float64, error)
}
