// Package geocode resolves free-text addresses to coordinates using the
// Google Geocoding API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/solar-engine/internal/resilience"
)

// DefaultBaseURL is the Google Geocoding JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNoResults is returned when the service answers but matches nothing.
var ErrNoResults = eris.New("geocode: no results")

// Client geocodes a single-line address query.
type Client interface {
	Geocode(ctx context.Context, query string) (*Result, error)
}

// Result is the first candidate returned for a query.
type Result struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Quality          string // "rooftop", "range", "centroid", "approximate"
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Geocoding API endpoint.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithRegion biases results towards a ccTLD region code such as "ca".
func WithRegion(region string) Option {
	return func(g *geocoder) {
		g.region = region
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithRetry sets the retry policy for transient upstream failures.
func WithRetry(p resilience.RetryPolicy) Option {
	return func(g *geocoder) {
		g.retry = p
	}
}

type geocoder struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	region     string
	limiter    *rate.Limiter
	retry      resilience.RetryPolicy
}

// NewClient creates a Google-backed Client.
func NewClient(apiKey string, opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(25, 25),
		retry:      resilience.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.retry.OnRetry == nil {
		g.retry.OnRetry = resilience.LogRetries("geocode")
	}
	return g
}
