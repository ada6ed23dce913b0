package vision

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/solar-engine/internal/metrics"
	"github.com/sells-group/solar-engine/internal/model"
)

// Mode selects what happens when no model produces an analysis.
type Mode string

const (
	// ModeStrict surfaces the failure; every result is AI-derived.
	ModeStrict Mode = "strict"
	// ModeFallback substitutes the synthetic estimator.
	ModeFallback Mode = "fallback"
)

// ErrVisionUnavailable is returned in strict mode when the chain fails.
var ErrVisionUnavailable = eris.New("vision: analysis unavailable")

// Analyzer is the roof analysis entry point.
type Analyzer struct {
	chain     *Chain
	estimator *Estimator
	mode      Mode
}

// NewAnalyzer creates an Analyzer. An unrecognized mode behaves as fallback.
func NewAnalyzer(chain *Chain, estimator *Estimator, mode Mode) *Analyzer {
	if mode != ModeStrict {
		mode = ModeFallback
	}
	if chain == nil {
		chain = NewChain(nil)
	}
	if estimator == nil {
		estimator = NewEstimator(0)
	}
	return &Analyzer{chain: chain, estimator: estimator, mode: mode}
}

// Mode returns the configured failure mode.
func (a *Analyzer) Mode() Mode { return a.mode }

// Chain returns the provider chain.
func (a *Analyzer) Chain() *Chain { return a.chain }

// Analyze produces a roof analysis for img. prompt is optional extra context.
func (a *Analyzer) Analyze(ctx context.Context, img Image, prompt string) (model.RoofAnalysis, error) {
	roof, err := a.chain.Analyze(ctx, img, prompt)
	if err == nil {
		return roof, nil
	}

	if a.mode == ModeStrict {
		return model.RoofAnalysis{}, eris.Wrapf(ErrVisionUnavailable, "%v", err)
	}

	zap.L().Warn("vision: using synthetic estimate", zap.Error(err))
	metrics.VisionFallbacks.Inc()
	return a.estimator.Estimate(img), nil
}
