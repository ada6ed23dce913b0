package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/sells-group/solar-engine/internal/config"
	"github.com/sells-group/solar-engine/internal/engine"
	"github.com/sells-group/solar-engine/internal/finance"
	"github.com/sells-group/solar-engine/internal/geo"
	"github.com/sells-group/solar-engine/internal/incentive"
	"github.com/sells-group/solar-engine/internal/irradiance"
	"github.com/sells-group/solar-engine/internal/recommend"
	"github.com/sells-group/solar-engine/internal/resilience"
	"github.com/sells-group/solar-engine/internal/store"
	"github.com/sells-group/solar-engine/internal/vision"
	anthropicpkg "github.com/sells-group/solar-engine/pkg/anthropic"
	"github.com/sells-group/solar-engine/pkg/gemini"
	"github.com/sells-group/solar-engine/pkg/geocode"
	"github.com/sells-group/solar-engine/pkg/nasapower"
)

// engineEnv holds the assembled engine and the resources it owns.
type engineEnv struct {
	Engine   *engine.Engine
	Analyzer *vision.Analyzer
	Store    store.Store             // nil when history is disabled
	Memory   *irradiance.MemoryCache // nil when the cache is redis
	closers  []func() error
}

// Close releases resources held by the environment.
func (env *engineEnv) Close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		if err := env.closers[i](); err != nil {
			zap.L().Debug("close resource", zap.Error(err))
		}
	}
}

// BreakerStates reports the vision circuit breakers.
func (env *engineEnv) BreakerStates() map[string]string {
	return env.Analyzer.Chain().BreakerStates()
}

// initEngine builds every collaborator from cfg. Callers should defer
// env.Close().
func initEngine(ctx context.Context, c *config.Config) (*engineEnv, error) {
	region, ok := geo.RegionByCode(c.Region.Code)
	if !ok {
		return nil, eris.Errorf("init: unsupported region %q", c.Region.Code)
	}
	env := &engineEnv{}

	retry := resilience.PolicyFromConfig(c.Retry)

	var gc geocode.Client
	if c.Geocode.GoogleKey != "" {
		gc = geocode.NewCachedClient(geocode.NewClient(c.Geocode.GoogleKey,
			geocode.WithBaseURL(c.Geocode.BaseURL),
			geocode.WithRegion(c.Region.Country),
			geocode.WithRateLimit(c.Geocode.RateLimit),
			geocode.WithRetry(retry),
			geocode.WithHTTPClient(&http.Client{Timeout: seconds(c.Geocode.TimeoutSecs)}),
		), time.Duration(c.Cache.TTLHours)*time.Hour, c.Cache.MaxEntries)
	} else {
		zap.L().Warn("SOLAR_GEOCODE_GOOGLE_KEY not set, every address resolves to the region default")
	}

	cache, err := initCache(ctx, c.Cache, env)
	if err != nil {
		env.Close()
		return nil, err
	}
	power := nasapower.NewClient(
		nasapower.WithBaseURL(c.Irradiance.BaseURL),
		nasapower.WithRateLimit(c.Irradiance.RateLimit),
		nasapower.WithRetry(retry),
		nasapower.WithHTTPClient(&http.Client{Timeout: seconds(c.Irradiance.TimeoutSecs)}),
	)

	analyzer, err := initVision(ctx, c.Vision)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Analyzer = analyzer

	catalog, err := incentive.LoadCatalog(c.Incentives.CatalogPath)
	if err != nil {
		env.Close()
		return nil, err
	}

	hist, err := store.Open(ctx, c.Store)
	if err != nil {
		env.Close()
		return nil, err
	}
	if hist != nil {
		env.closers = append(env.closers, hist.Close)
		if err := hist.Migrate(ctx); err != nil {
			env.Close()
			return nil, eris.Wrap(err, "init: migrate store")
		}
		env.Store = hist
	}

	env.Engine = engine.New(engine.Deps{
		Locator:        geo.NewResolver(gc, region),
		Irradiance:     irradiance.NewProvider(power, cache, irradiance.WithLookbackDays(c.Irradiance.LookbackDays)),
		Roofs:          analyzer,
		Projector:      finance.NewProjector(finance.TariffFromConfig(c.Finance)),
		Sizing:         finance.SizingFromConfig(c.Finance),
		Incentives:     incentive.NewEngine(catalog),
		Composer:       recommend.NewComposer(language.English),
		History:        env.Store,
		ConsumptionKWh: c.Finance.AnnualConsumptionKWh,
	})

	zap.L().Info("engine ready",
		zap.String("region", region.Name),
		zap.Strings("vision_chain", analyzer.Chain().Names()),
		zap.String("vision_mode", string(analyzer.Mode())),
		zap.String("cache", c.Cache.Backend),
		zap.Int("incentive_programs", len(catalog.Programs)),
		zap.Bool("history", env.Store != nil),
	)
	return env, nil
}

// initCache builds the irradiance cache backend. A redis backend must answer
// a ping before the engine starts.
func initCache(ctx context.Context, c config.CacheConfig, env *engineEnv) (irradiance.Cache, error) {
	ttl := time.Duration(c.TTLHours) * time.Hour
	switch c.Backend {
	case "redis":
		rdb, err := irradiance.DialRedis(ctx, c.RedisURL)
		if err != nil {
			return nil, eris.Wrap(err, "init: cache")
		}
		env.closers = append(env.closers, rdb.Close)
		return irradiance.NewRedisCache(rdb, c.KeyPrefix, ttl), nil
	default:
		env.Memory = irradiance.NewMemoryCache(c.MaxEntries, ttl)
		return env.Memory, nil
	}
}

// initVision builds the provider chain from the configured model list.
// Vendors without an API key are left out of the chain.
func initVision(ctx context.Context, c config.VisionConfig) (*vision.Analyzer, error) {
	hc := &http.Client{Timeout: seconds(c.TimeoutSecs)}

	var clients vision.Clients
	clients.MaxTokens = c.MaxTokens
	if c.AnthropicKey != "" {
		clients.Anthropic = anthropicpkg.NewClient(c.AnthropicKey, anthropicpkg.WithHTTPClient(hc))
	}
	if c.GeminiKey != "" {
		gc, err := gemini.NewClient(ctx, c.GeminiKey, gemini.WithHTTPClient(hc))
		if err != nil {
			return nil, err
		}
		clients.Gemini = gc
	}

	providers, err := vision.BuildProviders(c.Providers, clients)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		zap.L().Warn("no vision providers configured", zap.String("mode", c.Mode))
	}

	breakers := resilience.NewBreakers(resilience.BreakerSettings{
		Threshold: c.BreakerThreshold,
		Cooldown:  seconds(c.BreakerResetSecs),
		OnStateChange: func(name string, from, to resilience.BreakerState) {
			zap.L().Warn("vision: breaker state change",
				zap.String("provider", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		},
	})

	chain := vision.NewChain(breakers, providers...)
	return vision.NewAnalyzer(chain, vision.NewEstimator(c.Seed), vision.Mode(c.Mode)), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
