package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetpulse/fleet-alerting/internal/core/ports"
)

const (
	defaultSpeedLimitMph  = 35.0
	speedLimitCacheTTL    = time.Hour
	speedLimitCallTimeout = 3 * time.Second
	evictionInterval      = 10 * time.Minute
)

type speedLimitEntry struct {
	limit     float64
	fetchedAt time.Time
}

// SpeedLimitResolver returns the legal speed limit near a coordinate. Lookups
// are cached by coordinate rounded to 4 decimal places (~11 m) for an hour;
// on cache miss the external API is called with a bounded timeout, and on any
// failure the configured default is returned instead of an error; speed
// limit unavailability must never block the pipeline.
type SpeedLimitResolver struct {
	api          ports.SpeedLimitAPI
	defaultLimit float64
	ttl          time.Duration
	timeout      time.Duration
	log          zerolog.Logger
	now          func() time.Time

	mu    sync.Mutex
	cache map[string]speedLimitEntry
}

func NewSpeedLimitResolver(api ports.SpeedLimitAPI, log zerolog.Logger) *SpeedLimitResolver {
	return &SpeedLimitResolver{
		api:          api,
		defaultLimit: defaultSpeedLimitMph,
		ttl:          speedLimitCacheTTL,
		timeout:      speedLimitCallTimeout,
		log:          log,
		now:          time.Now,
		cache:        make(map[string]speedLimitEntry),
	}
}

// Resolve returns the speed limit in mph for the coordinate. It never fails:
// lookup errors and timeouts degrade to the default limit and are not cached,
// so the next event retries the lookup.
func (r *SpeedLimitResolver) Resolve(ctx context.Context, lat, lng float64) float64 {
	key := cacheKey(lat, lng)

	r.mu.Lock()
	entry, ok := r.cache[key]
	r.mu.Unlock()
	if ok && r.now().Sub(entry.fetchedAt) < r.ttl {
		return entry.limit
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	limit, err := r.api.Lookup(lookupCtx, lat, lng)
	if err != nil {
		r.log.Debug().Err(err).Str("key", key).Msg("speed limit lookup failed, using default")
		if ok {
			// Stale cache beats the blanket default.
			return entry.limit
		}
		return r.defaultLimit
	}

	r.mu.Lock()
	r.cache[key] = speedLimitEntry{limit: limit, fetchedAt: r.now()}
	r.mu.Unlock()
	return limit
}

// RunEviction periodically drops stale cache entries until ctx is cancelled.
func (r *SpeedLimitResolver) RunEviction(ctx context.Context) {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.evictStale()
		}
	}
}

func (r *SpeedLimitResolver) evictStale() {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	for key, entry := range r.cache {
		if entry.fetchedAt.Before(cutoff) {
			delete(r.cache, key)
		}
	}
	r.mu.Unlock()
}

// cacheKey rounds the coordinate to 4 decimal places, roughly an 11 m cell.
func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f:%.4f", lat, lng)
}
