package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/fastbag-backend/pkg/logger"
	"github.com/angelmondragon/fastbag-backend/pkg/maps"
)

const defaultTTL = 30 * 24 * time.Hour

// Resolver reverse-geocodes a coordinate pair.
type Resolver interface {
	ReverseGeocode(ctx context.Context, point maps.LatLng) (*maps.Place, error)
}

// Cache is the redis surface used to memoize lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GeocodeKey(lat, lng float64) string
}

// CachedResolver memoizes reverse-geocode results in redis. Coordinates are
// bucketed to four decimal places by the cache key.
type CachedResolver struct {
	next  Resolver
	cache Cache
	ttl   time.Duration
	logg  *logger.Logger
}

func NewCachedResolver(next Resolver, cache Cache, ttl time.Duration, logg *logger.Logger) (*CachedResolver, error) {
	if next == nil {
		return nil, errors.New("resolver required")
	}
	if cache == nil {
		return nil, errors.New("cache required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logg: logg}, nil
}

func (r *CachedResolver) ReverseGeocode(ctx context.Context, point maps.LatLng) (*maps.Place, error) {
	key := r.cache.GeocodeKey(point.Latitude, point.Longitude)

	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil:
		var place maps.Place
		if jsonErr := json.Unmarshal([]byte(raw), &place); jsonErr == nil {
			return &place, nil
		}
	case !errors.Is(err, goredis.Nil):
		r.warn(ctx, key, "geocode cache read failed", err)
	}

	place, err := r.next.ReverseGeocode(ctx, point)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(place); err == nil {
		if err := r.cache.Set(ctx, key, payload, r.ttl); err != nil {
			r.warn(ctx, key, "geocode cache write failed", err)
		}
	}
	return place, nil
}

// PlaceName is the best-effort label used on list views; lookup failures yield "".
func (r *CachedResolver) PlaceName(ctx context.Context, lat, lng *float64) string {
	if r == nil || lat == nil || lng == nil {
		return ""
	}
	place, err := r.ReverseGeocode(ctx, maps.LatLng{Latitude: *lat, Longitude: *lng})
	if err != nil {
		r.warn(ctx, r.cache.GeocodeKey(*lat, *lng), "reverse geocode failed", err)
		return ""
	}
	return place.Name()
}

func (r *CachedResolver) warn(ctx context.Context, key, msg string, err error) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithFields(ctx, map[string]any{"key": key, "error": err.Error()})
	r.logg.Warn(ctx, msg)
}
