// Package nasapower is a client for the NASA POWER daily point API, which
// serves historical surface irradiance for any coordinate.
package nasapower

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/solar-engine/internal/resilience"
)

const (
	// DefaultBaseURL is the daily point endpoint.
	DefaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"

	// ParamGHI is all-sky surface shortwave downward irradiance, kWh/m²/day.
	ParamGHI = "ALLSKY_SFC_SW_DWN"

	// DateLayout is the YYYYMMDD layout used for request ranges and
	// response keys.
	DateLayout = "20060102"
)

// Series maps YYYYMMDD to a daily value. Missing readings carry the
// API's negative fill value.
type Series map[string]float64

// Client fetches daily irradiance time series.
type Client interface {
	DailyGHI(ctx context.Context, lat, lng float64, start, end time.Time) (Series, error)
}

type pointResponse struct {
	Properties struct {
		Parameter map[string]Series `json:"parameter"`
	} `json:"properties"`
	Messages []string `json:"messages"`
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
		}
	}
}

// WithRetry sets the retry policy.
func WithRetry(p resilience.RetryPolicy) Option {
	return func(c *client) { c.retry = p }
}

type client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retry      resilience.RetryPolicy
}

// NewClient creates a NASA POWER client. The API needs no key.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    DefaultBaseURL,
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.LogRetries("nasapower")
	}
	return c
}

// DailyGHI returns the daily GHI series for [start, end], inclusive.
func (c *client) DailyGHI(ctx context.Context, lat, lng float64, start, end time.Time) (Series, error) {
	params := url.Values{
		"parameters": {ParamGHI},
		"community":  {"RE"},
		"latitude":   {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(lng, 'f', 4, 64)},
		"start":      {start.Format(DateLayout)},
		"end":        {end.Format(DateLayout)},
		"format":     {"JSON"},
	}
	reqURL := c.baseURL + "?" + params.Encode()

	return resilience.Do(ctx, c.retry, func(ctx context.Context) (Series, error) {
		return c.fetch(ctx, reqURL)
	})
}

func (c *client) fetch(ctx context.Context, reqURL string) (Series, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nasapower: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "nasapower: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nasapower: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nasapower: read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resilience.StatusError("nasapower", resp.StatusCode, body)
	}

	var parsed pointResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "nasapower: parse response")
	}

	series, ok := parsed.Properties.Parameter[ParamGHI]
	if !ok {
		return nil, eris.Errorf("nasapower: response missing %s", ParamGHI)
	}
	return series, nil
}
