// Package engine runs a complete solar assessment: geocoding and roof
// analysis in parallel, then irradiance, sizing, finance, incentives and the
// final recommendation.
package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/solar-engine/internal/apperr"
	"github.com/sells-group/solar-engine/internal/finance"
	"github.com/sells-group/solar-engine/internal/incentive"
	"github.com/sells-group/solar-engine/internal/metrics"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/internal/recommend"
	"github.com/sells-group/solar-engine/internal/store"
	"github.com/sells-group/solar-engine/internal/vision"
)

// Locator resolves an address to a coordinate. It never fails.
type Locator interface {
	Resolve(ctx context.Context, addr model.Address) model.GeocodedLocation
}

// IrradianceSource returns the irradiance profile for a coordinate. It never
// fails.
type IrradianceSource interface {
	Profile(ctx context.Context, lat, lng float64) model.IrradianceProfile
}

// RoofAnalyzer analyzes a roof photograph.
type RoofAnalyzer interface {
	Analyze(ctx context.Context, img vision.Image, prompt string) (model.RoofAnalysis, error)
}

// Deps are the collaborators of an Engine. History is optional.
type Deps struct {
	Locator    Locator
	Irradiance IrradianceSource
	Roofs      RoofAnalyzer
	Projector  *finance.Projector
	Sizing     finance.Sizing
	Incentives *incentive.Engine
	Composer   *recommend.Composer
	History    store.Store

	// ConsumptionKWh is the default annual household consumption.
	ConsumptionKWh float64
}

// Engine composes the assessment components.
type Engine struct {
	deps Deps
	now  func() time.Time
}

// New creates an Engine.
func New(d Deps) *Engine {
	return &Engine{deps: d, now: time.Now}
}

// History returns the assessment store, or nil when history is disabled.
func (e *Engine) History() store.Store { return e.deps.History }

// Request is one assessment.
type Request struct {
	Address      model.Address
	PropertyType model.PropertyType
	Image        vision.Image
	// Prompt is optional context passed to the vision models.
	Prompt string
	// ConsumptionKWh overrides the default annual consumption when positive.
	ConsumptionKWh float64
}

// Validate checks the request inputs the engine cannot recover from.
func (r Request) Validate() error {
	if len(r.Image.Data) == 0 {
		return apperr.Validation(apperr.CodeMissingImage, "a roof image is required")
	}
	if !r.Address.Complete() {
		return apperr.Validation(apperr.CodeIncompleteAddress, "street, city, postal code and country are required")
	}
	return nil
}

// Assess runs the full assessment. Geocoding and irradiance never fail; the
// only runtime error is a roof analysis failure in strict vision mode, which
// is returned as an ANALYSIS_FAILED error.
func (e *Engine) Assess(ctx context.Context, req Request) (*model.Assessment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.PropertyType == "" {
		req.PropertyType = model.PropertyResidential
	}
	consumption := req.ConsumptionKWh
	if consumption <= 0 {
		consumption = e.deps.ConsumptionKWh
	}

	start := e.now()
	log := zap.L().With(zap.String("city", req.Address.City), zap.String("property_type", string(req.PropertyType)))

	var (
		loc     model.GeocodedLocation
		profile model.IrradianceProfile
		roof    model.RoofAnalysis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loc = e.deps.Locator.Resolve(gctx, req.Address)
		profile = e.deps.Irradiance.Profile(gctx, loc.Latitude, loc.Longitude)
		return nil
	})
	g.Go(func() error {
		var err error
		roof, err = e.deps.Roofs.Analyze(gctx, req.Image, req.Prompt)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.AssessmentDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		log.Error("engine: roof analysis failed", zap.Error(err))
		return nil, apperr.AnalysisFailed(err)
	}

	design := e.deps.Sizing.Size(roof, profile, consumption)
	fa := e.deps.Projector.Project(finance.Input{
		SystemSizeKW:         design.SystemSizeKW,
		AnnualProductionKWh:  design.AnnualProductionKWh,
		InstallationCost:     design.InstallationCost,
		AnnualConsumptionKWh: consumption,
	})
	incentives := e.deps.Incentives.Evaluate(incentive.Request{
		PropertyType:  req.PropertyType,
		SystemSizeKW:  design.SystemSizeKW,
		EstimatedCost: design.InstallationCost,
	})
	fa = finance.WithIncentives(fa, incentives.TotalFunding)

	rec := e.deps.Composer.Compose(recommend.Input{
		Location:       loc,
		Roof:           roof,
		Irradiance:     profile,
		Design:         design,
		Financial:      fa,
		Incentives:     incentives,
		ConsumptionKWh: consumption,
	})

	elapsed := e.now().Sub(start)
	a := &model.Assessment{
		ID:             uuid.NewString(),
		Address:        req.Address,
		PropertyType:   req.PropertyType,
		Location:       loc,
		Irradiance:     profile,
		Roof:           roof,
		Incentives:     incentives,
		Recommendation: rec,
		CreatedAt:      start.UTC(),
		DurationMS:     elapsed.Milliseconds(),
	}
	metrics.AssessmentDuration.WithLabelValues("ok").Observe(elapsed.Seconds())

	if e.deps.History != nil {
		// History is best effort; the caller still gets the assessment.
		if err := e.deps.History.SaveAssessment(ctx, a); err != nil {
			log.Warn("engine: failed to save assessment", zap.String("id", a.ID), zap.Error(err))
		}
	}

	log.Info("engine: assessment complete",
		zap.String("id", a.ID),
		zap.Int("score", rec.SuitabilityScore),
		zap.Bool("used_ai", roof.UsedAI),
		zap.Bool("default_location", loc.IsDefault),
		zap.String("irradiance_source", string(profile.DataSource)),
		zap.Duration("elapsed", elapsed),
	)
	return a, nil
}

// AnalyzeRoof runs roof analysis alone.
func (e *Engine) AnalyzeRoof(ctx context.Context, img vision.Image, prompt string) (model.RoofAnalysis, error) {
	if len(img.Data) == 0 {
		return model.RoofAnalysis{}, apperr.Validation(apperr.CodeMissingImage, "a roof image is required")
	}
	roof, err := e.deps.Roofs.Analyze(ctx, img, prompt)
	if err != nil {
		return model.RoofAnalysis{}, apperr.AnalysisFailed(err)
	}
	return roof, nil
}

// Irradiance returns the profile for a coordinate.
func (e *Engine) Irradiance(ctx context.Context, lat, lng float64) model.IrradianceProfile {
	return e.deps.Irradiance.Profile(ctx, lat, lng)
}

// IncentivesFor evaluates the catalog for a system size. A non-positive cost
// is estimated from the size.
func (e *Engine) IncentivesFor(pt model.PropertyType, sizeKW, cost float64) model.IncentiveSummary {
	if cost <= 0 {
		cost = e.deps.Sizing.ForSize(sizeKW, model.IrradianceProfile{}).InstallationCost
	}
	return e.deps.Incentives.Evaluate(incentive.Request{PropertyType: pt, SystemSizeKW: sizeKW, EstimatedCost: cost})
}

// ParsePropertyType validates a property type for callers at the edge.
func ParsePropertyType(s string) (model.PropertyType, error) {
	pt, ok := model.ParsePropertyType(s)
	if !ok {
		return "", apperr.Validation(apperr.CodeInvalidRequest,
			"property type must be one of residential, farm, business; got "+strings.TrimSpace(s))
	}
	return pt, nil
}
