package geo

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/solar-engine/internal/metrics"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/pkg/geocode"
)

// Fallback reasons reported on GeocodedLocation.Reason.
const (
	ReasonNotConfigured = "geocoding not configured"
	ReasonNoResults     = "no geocoding results for address"
	ReasonLookupFailed  = "geocoding service unavailable"
	ReasonOutOfRegion   = "address outside service region"
)

// Resolver turns addresses into in-region coordinates. It never fails: any
// problem yields the region's default location with IsDefault set.
type Resolver struct {
	client geocode.Client
	region Region
}

// NewResolver creates a Resolver. client may be nil, in which case every
// lookup resolves to the default location.
func NewResolver(client geocode.Client, region Region) *Resolver {
	return &Resolver{client: client, region: region}
}

// Region returns the service region.
func (r *Resolver) Region() Region { return r.region }

// Query builds the single-line geocoding query for addr.
func (r *Resolver) Query(addr model.Address) string {
	q := addr.OneLine()
	if r.region.Code == "" {
		return q
	}
	if q == "" {
		return r.region.Code
	}
	return q + ", " + r.region.Code
}

// Resolve geocodes addr.
func (r *Resolver) Resolve(ctx context.Context, addr model.Address) model.GeocodedLocation {
	if r.client == nil {
		return r.fallback(addr, ReasonNotConfigured, nil)
	}

	res, err := r.client.Geocode(ctx, r.Query(addr))
	switch {
	case errors.Is(err, geocode.ErrNoResults):
		return r.fallback(addr, ReasonNoResults, nil)
	case err != nil:
		return r.fallback(addr, ReasonLookupFailed, err)
	}

	if !r.region.Contains(res.Latitude, res.Longitude) {
		zap.L().Warn("geocode: result outside region",
			zap.String("region", r.region.Code),
			zap.Float64("lat", res.Latitude),
			zap.Float64("lng", res.Longitude),
		)
		return r.fallback(addr, ReasonOutOfRegion, nil)
	}

	metrics.GeocodeResults.WithLabelValues("resolved").Inc()
	return model.GeocodedLocation{
		Latitude:         res.Latitude,
		Longitude:        res.Longitude,
		FormattedAddress: res.FormattedAddress,
	}
}

func (r *Resolver) fallback(addr model.Address, reason string, err error) model.GeocodedLocation {
	metrics.GeocodeResults.WithLabelValues("default").Inc()
	fields := []zap.Field{
		zap.String("address", addr.OneLine()),
		zap.String("reason", reason),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	zap.L().Warn("geocode: using default location", fields...)
	return r.region.DefaultLocation(reason)
}
