package irradiance

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/solar-engine/internal/metrics"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/pkg/nasapower"
)

// DefaultLookbackDays is the trailing window requested from the API.
const DefaultLookbackDays = 366

// Provider serves irradiance profiles: cache first, then the live API, then
// the static default. It never fails.
type Provider struct {
	client   nasapower.Client
	cache    Cache
	lookback int
	now      func() time.Time
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLookbackDays sets the history window.
func WithLookbackDays(days int) ProviderOption {
	return func(p *Provider) {
		if days > 0 {
			p.lookback = days
		}
	}
}

// WithClock injects the time source used to compute the request window.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) { p.now = now }
}

// NewProvider creates a Provider. A nil client serves defaults only; a nil
// cache disables caching.
func NewProvider(client nasapower.Client, cache Cache, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:   client,
		cache:    cache,
		lookback: DefaultLookbackDays,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Profile returns the irradiance profile for a coordinate.
func (p *Provider) Profile(ctx context.Context, lat, lng float64) model.IrradianceProfile {
	key := Key(lat, lng)

	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, key); ok {
			cached.DataSource = model.DataSourceCached
			metrics.IrradianceResults.WithLabelValues(string(model.DataSourceCached)).Inc()
			return cached
		}
	}

	profile, err := p.fetch(ctx, lat, lng)
	if err != nil {
		zap.L().Warn("irradiance: using default profile",
			zap.String("key", key),
			zap.Error(err),
		)
		metrics.IrradianceResults.WithLabelValues(string(model.DataSourceDefault)).Inc()
		return DefaultProfile(lat, lng)
	}

	if p.cache != nil {
		p.cache.Set(ctx, key, profile)
	}
	metrics.IrradianceResults.WithLabelValues(string(model.DataSourceLive)).Inc()
	return profile
}

func (p *Provider) fetch(ctx context.Context, lat, lng float64) (model.IrradianceProfile, error) {
	if p.client == nil {
		return model.IrradianceProfile{}, errNoClient
	}

	end := p.now().UTC().Truncate(24 * time.Hour)
	// The range is inclusive, so it spans exactly lookback days.
	start := end.AddDate(0, 0, -(p.lookback - 1))

	series, err := p.client.DailyGHI(ctx, lat, lng, start, end)
	if err != nil {
		return model.IrradianceProfile{}, err
	}

	profile, err := Aggregate(series)
	if err != nil {
		return model.IrradianceProfile{}, err
	}
	profile.Latitude = lat
	profile.Longitude = lng
	profile.DataSource = model.DataSourceLive

	zap.L().Debug("irradiance: live profile",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.Int("valid_days", profile.ValidDays),
		zap.Float64("annual_ghi", profile.AnnualGHI),
	)
	return profile, nil
}
