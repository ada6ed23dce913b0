package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/sells-group/solar-engine/internal/apperr"
	"github.com/sells-group/solar-engine/internal/finance"
	"github.com/sells-group/solar-engine/internal/incentive"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/internal/recommend"
	"github.com/sells-group/solar-engine/internal/store"
	"github.com/sells-group/solar-engine/internal/vision"
)

type mockLocator struct{ mock.Mock }

func (m *mockLocator) Resolve(ctx context.Context, addr model.Address) model.GeocodedLocation {
	return m.Called(ctx, addr).Get(0).(model.GeocodedLocation)
}

type mockIrradiance struct{ mock.Mock }

func (m *mockIrradiance) Profile(ctx context.Context, lat, lng float64) model.IrradianceProfile {
	return m.Called(ctx, lat, lng).Get(0).(model.IrradianceProfile)
}

type mockRoofs struct{ mock.Mock }

func (m *mockRoofs) Analyze(ctx context.Context, img vision.Image, prompt string) (model.RoofAnalysis, error) {
	args := m.Called(ctx, img, prompt)
	return args.Get(0).(model.RoofAnalysis), args.Error(1)
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) SaveAssessment(ctx context.Context, a *model.Assessment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockHistory) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	args := m.Called(ctx, id)
	if a := args.Get(0); a != nil {
		return a.(*model.Assessment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockHistory) ListAssessments(ctx context.Context, f store.ListFilter) ([]store.Summary, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]store.Summary), args.Error(1)
}

func (m *mockHistory) Migrate(context.Context) error { return nil }
func (m *mockHistory) Close() error                  { return nil }

var (
	testAddr = model.Address{Street: "165 Richmond St", City: "Charlottetown", PostalCode: "C1A 1J1", Country: "Canada"}
	testImg  = vision.Image{Data: []byte{0xFF, 0xD8, 0xFF, 0xE0}, MediaType: "image/jpeg"}
	testLoc  = model.GeocodedLocation{Latitude: 46.2352, Longitude: -63.1262, FormattedAddress: "165 Richmond St, Charlottetown, PE"}
	testProf = model.IrradianceProfile{
		Latitude:        46.2352,
		Longitude:       -63.1262,
		AnnualGHI:       1277,
		MonthlyAverages: [12]float64{1.6, 2.6, 3.6, 4.5, 5.3, 5.8, 5.8, 5.0, 3.9, 2.5, 1.5, 1.2},
		PeakSunHours:    3.5,
		PVPotential:     1021.6,
		DataSource:      model.DataSourceLive,
	}
	testRoof = model.RoofAnalysis{
		AreaM2:        120,
		Shading:       model.ShadingLow,
		PitchDegrees:  35,
		Complexity:    model.ComplexitySimple,
		UsablePercent: 75,
		Orientation:   "south",
		UsedAI:        true,
		Suggestions:   []model.Suggestion{{Kind: "maintenance", Priority: model.PriorityLow}},
	}
)

func newTestEngine(t *testing.T, loc *mockLocator, irr *mockIrradiance, roofs *mockRoofs, history store.Store) *Engine {
	t.Helper()
	catalog, err := incentive.DefaultCatalog()
	require.NoError(t, err)
	return New(Deps{
		Locator:        loc,
		Irradiance:     irr,
		Roofs:          roofs,
		Projector:      finance.NewProjector(finance.DefaultTariff()),
		Sizing:         finance.DefaultSizing(),
		Incentives:     incentive.NewEngine(catalog),
		Composer:       recommend.NewComposer(language.English),
		History:        history,
		ConsumptionKWh: 7500,
	})
}

func TestAssess(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Resolve", mock.Anything, testAddr).Return(testLoc)
	irr := new(mockIrradiance)
	irr.On("Profile", mock.Anything, testLoc.Latitude, testLoc.Longitude).Return(testProf)
	roofs := new(mockRoofs)
	roofs.On("Analyze", mock.Anything, testImg, "").Return(testRoof, nil)
	history := new(mockHistory)
	history.On("SaveAssessment", mock.Anything, mock.AnythingOfType("*model.Assessment")).Return(nil)

	e := newTestEngine(t, loc, irr, roofs, history)
	a, err := e.Assess(context.Background(), Request{Address: testAddr, Image: testImg})
	require.NoError(t, err)

	assert.Len(t, a.ID, 36)
	assert.Equal(t, model.PropertyResidential, a.PropertyType)
	assert.Equal(t, testLoc, a.Location)
	assert.Equal(t, testProf, a.Irradiance)

	rec := a.Recommendation
	// 90 m² usable fits 45 panels; 7,500 kWh needs ceil(7500/408.64) = 19.
	assert.Equal(t, 19, rec.PanelCount)
	assert.InDelta(t, 7.6, rec.SystemSizeKW, 1e-9)
	assert.InDelta(t, 22800.0, rec.Financial.InstallationCost, 1e-9)
	assert.Equal(t, 100, rec.SuitabilityScore)
	assert.Equal(t, "A", rec.Grade)
	assert.InDelta(t, 15000.0, a.Incentives.TotalFunding, 1e-9)
	assert.InDelta(t, 15000.0, rec.Financial.IncentiveFunding, 1e-9)
	assert.InDelta(t, 7800.0, rec.Financial.NetCost, 1e-9)
	assert.Less(t, float64(rec.Financial.AdjustedPaybackYears), float64(rec.Financial.PaybackYears))
	assert.NotEmpty(t, rec.Explanation)

	history.AssertExpectations(t)
	saved := history.Calls[0].Arguments.Get(1).(*model.Assessment)
	assert.Equal(t, a.ID, saved.ID)
}

func TestAssess_Validation(t *testing.T) {
	e := newTestEngine(t, new(mockLocator), new(mockIrradiance), new(mockRoofs), nil)

	_, err := e.Assess(context.Background(), Request{Address: testAddr})
	assert.Equal(t, apperr.CodeMissingImage, apperr.CodeOf(err))

	incomplete := testAddr
	incomplete.City = ""
	_, err = e.Assess(context.Background(), Request{Address: incomplete, Image: testImg})
	assert.Equal(t, apperr.CodeIncompleteAddress, apperr.CodeOf(err))
}

func TestAssess_RoofFailure(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Resolve", mock.Anything, testAddr).Return(testLoc)
	irr := new(mockIrradiance)
	irr.On("Profile", mock.Anything, mock.Anything, mock.Anything).Return(testProf)
	roofs := new(mockRoofs)
	roofs.On("Analyze", mock.Anything, testImg, "").Return(model.RoofAnalysis{}, vision.ErrVisionUnavailable)
	history := new(mockHistory)

	e := newTestEngine(t, loc, irr, roofs, history)
	_, err := e.Assess(context.Background(), Request{Address: testAddr, Image: testImg})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeAnalysisFailed, apperr.CodeOf(err))
	assert.ErrorIs(t, err, vision.ErrVisionUnavailable)
	history.AssertNotCalled(t, "SaveAssessment", mock.Anything, mock.Anything)
}

func TestAssess_HistoryFailureIsNotFatal(t *testing.T) {
	loc := new(mockLocator)
	loc.On("Resolve", mock.Anything, testAddr).Return(testLoc)
	irr := new(mockIrradiance)
	irr.On("Profile", mock.Anything, mock.Anything, mock.Anything).Return(testProf)
	roofs := new(mockRoofs)
	roofs.On("Analyze", mock.Anything, testImg, "").Return(testRoof, nil)
	history := new(mockHistory)
	history.On("SaveAssessment", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	e := newTestEngine(t, loc, irr, roofs, history)
	a, err := e.Assess(context.Background(), Request{Address: testAddr, Image: testImg, PropertyType: model.PropertyFarm})
	require.NoError(t, err)
	assert.Equal(t, model.PropertyFarm, a.PropertyType)
}

// blockingLocator waits for the roof analysis to start before resolving, so
// a sequential engine would time out.
type blockingLocator struct {
	roofStarted chan struct{}
}

func (b *blockingLocator) Resolve(ctx context.Context, _ model.Address) model.GeocodedLocation {
	select {
	case <-b.roofStarted:
	case <-time.After(2 * time.Second):
	}
	return testLoc
}

type signallingRoofs struct {
	started chan struct{}
}

func (s *signallingRoofs) Analyze(ctx context.Context, _ vision.Image, _ string) (model.RoofAnalysis, error) {
	close(s.started)
	return testRoof, nil
}

func TestAssess_GeocodeAndRoofRunConcurrently(t *testing.T) {
	started := make(chan struct{})
	irr := new(mockIrradiance)
	irr.On("Profile", mock.Anything, mock.Anything, mock.Anything).Return(testProf)

	catalog, err := incentive.DefaultCatalog()
	require.NoError(t, err)
	e := New(Deps{
		Locator:    &blockingLocator{roofStarted: started},
		Irradiance: irr,
		Roofs:      &signallingRoofs{started: started},
		Projector:  finance.NewProjector(finance.DefaultTariff()),
		Sizing:     finance.DefaultSizing(),
		Incentives: incentive.NewEngine(catalog),
		Composer:   recommend.NewComposer(language.English),
	})

	begin := time.Now()
	_, err = e.Assess(context.Background(), Request{Address: testAddr, Image: testImg})
	require.NoError(t, err)
	assert.Less(t, time.Since(begin), time.Second)
}

func TestIncentivesFor_EstimatesCost(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil, nil)
	sum := e.IncentivesFor(model.PropertyResidential, 6, 0)
	assert.InDelta(t, 18000.0, sum.EstimatedCost, 1e-9)
	assert.InDelta(t, 6.0, sum.SystemSizeKW, 1e-9)
}

func TestAnalyzeRoof(t *testing.T) {
	roofs := new(mockRoofs)
	roofs.On("Analyze", mock.Anything, testImg, "flat roof").Return(testRoof, nil)
	e := newTestEngine(t, nil, nil, roofs, nil)

	roof, err := e.AnalyzeRoof(context.Background(), testImg, "flat roof")
	require.NoError(t, err)
	assert.Equal(t, testRoof.AreaM2, roof.AreaM2)

	_, err = e.AnalyzeRoof(context.Background(), vision.Image{}, "")
	assert.Equal(t, apperr.CodeMissingImage, apperr.CodeOf(err))
}

func TestParsePropertyType(t *testing.T) {
	pt, err := ParsePropertyType("Farm")
	require.NoError(t, err)
	assert.Equal(t, model.PropertyFarm, pt)

	_, err = ParsePropertyType("castle")
	assert.Equal(t, apperr.CodeInvalidRequest, apperr.CodeOf(err))
}
