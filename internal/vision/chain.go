package vision

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/solar-engine/internal/metrics"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/internal/resilience"
)

// ErrNoProviders means the chain has nothing configured to try.
var ErrNoProviders = eris.New("vision: no providers configured")

// Chain tries providers in priority order, returning the first success. Each
// provider sits behind its own circuit breaker so a failing model is skipped
// quickly on later requests.
type Chain struct {
	providers []Provider
	breakers  *resilience.Breakers
}

// NewChain creates a Chain. breakers may be nil to disable circuit breaking.
func NewChain(breakers *resilience.Breakers, providers ...Provider) *Chain {
	return &Chain{providers: providers, breakers: breakers}
}

// Len returns the number of configured providers.
func (c *Chain) Len() int { return len(c.providers) }

// Names returns the provider names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Analyze runs the chain. The returned analysis carries the winning
// provider's name and rule-based suggestions.
func (c *Chain) Analyze(ctx context.Context, img Image, prompt string) (model.RoofAnalysis, error) {
	if len(c.providers) == 0 {
		return model.RoofAnalysis{}, ErrNoProviders
	}

	var lastErr error
	for _, p := range c.providers {
		roof, err := c.call(ctx, p, img, prompt)
		if err == nil {
			metrics.VisionAttempts.WithLabelValues(p.Name(), "success").Inc()
			roof.Provider = p.Name()
			return withSuggestions(roof), nil
		}

		outcome := "error"
		if eris.Is(err, resilience.ErrBreakerOpen) {
			outcome = "skipped"
		} else if eris.Is(err, ErrNonConforming) {
			outcome = "non_conforming"
		}
		metrics.VisionAttempts.WithLabelValues(p.Name(), outcome).Inc()
		zap.L().Debug("vision: provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return model.RoofAnalysis{}, eris.Wrap(lastErr, "vision: all providers failed")
}

func (c *Chain) call(ctx context.Context, p Provider, img Image, prompt string) (model.RoofAnalysis, error) {
	if c.breakers == nil {
		return p.Analyze(ctx, img, prompt)
	}
	return resilience.Call(ctx, c.breakers.Get(p.Name()), func(ctx context.Context) (model.RoofAnalysis, error) {
		return p.Analyze(ctx, img, prompt)
	})
}

// BreakerStates reports per-provider circuit state.
func (c *Chain) BreakerStates() map[string]string {
	if c.breakers == nil {
		return nil
	}
	return c.breakers.States()
}
