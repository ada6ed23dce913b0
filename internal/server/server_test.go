package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-engine/internal/apperr"
	"github.com/sells-group/solar-engine/internal/config"
	"github.com/sells-group/solar-engine/internal/engine"
	"github.com/sells-group/solar-engine/internal/irradiance"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/internal/store"
	"github.com/sells-group/solar-engine/internal/vision"
)

type mockAssessor struct{ mock.Mock }

func (m *mockAssessor) Assess(ctx context.Context, req engine.Request) (*model.Assessment, error) {
	args := m.Called(ctx, req)
	a, _ := args.Get(0).(*model.Assessment)
	return a, args.Error(1)
}

func (m *mockAssessor) AnalyzeRoof(ctx context.Context, img vision.Image, prompt string) (model.RoofAnalysis, error) {
	args := m.Called(ctx, img, prompt)
	return args.Get(0).(model.RoofAnalysis), args.Error(1)
}

func (m *mockAssessor) Irradiance(ctx context.Context, lat, lng float64) model.IrradianceProfile {
	return m.Called(ctx, lat, lng).Get(0).(model.IrradianceProfile)
}

func (m *mockAssessor) IncentivesFor(pt model.PropertyType, sizeKW, cost float64) model.IncentiveSummary {
	return m.Called(pt, sizeKW, cost).Get(0).(model.IncentiveSummary)
}

func (m *mockAssessor) History() store.Store {
	s, _ := m.Called().Get(0).(store.Store)
	return s
}

type mockStore struct{ mock.Mock }

func (m *mockStore) SaveAssessment(ctx context.Context, a *model.Assessment) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockStore) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*model.Assessment)
	return a, args.Error(1)
}

func (m *mockStore) ListAssessments(ctx context.Context, f store.ListFilter) ([]store.Summary, error) {
	args := m.Called(ctx, f)
	s, _ := args.Get(0).([]store.Summary)
	return s, args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *mockStore) Close() error                      { return m.Called().Error(0) }

// pngBytes returns n bytes that sniff as image/png.
func pngBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *errorBody      `json:"error"`
}

func newTestServer(t *testing.T, svc Assessor, cfg config.ServerConfig) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(New(svc, cfg).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response) response {
	t.Helper()
	defer resp.Body.Close()
	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type formFile struct {
	data        []byte
	contentType string
}

func multipartBody(t *testing.T, fields map[string]string, file *formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="roof"`)
		ct := file.contentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func addressFields() map[string]string {
	return map[string]string{
		"street":     "123 Queen St",
		"city":       "Charlottetown",
		"postalCode": "C1A 4B3",
		"country":    "Canada",
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, new(mockAssessor), config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestHealthReportsBreakers(t *testing.T) {
	srv := New(new(mockAssessor), config.ServerConfig{}, WithBreakerStates(func() map[string]string {
		return map[string]string{"anthropic:claude": "open"}
	}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"anthropic:claude":"open"`)
}

func TestHealthReportsCacheStats(t *testing.T) {
	srv := New(new(mockAssessor), config.ServerConfig{}, WithCacheStats(func() irradiance.CacheStats {
		return irradiance.CacheStats{Entries: 3, MaxEntries: 100, Hits: 9, Misses: 3, HitRate: 0.75}
	}))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","cache":{"entries":3,"maxEntries":100,"hits":9,"misses":3,"hitRate":0.75}}`,
		rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, new(mockAssessor), config.ServerConfig{})

	// Generate one request so the route counter has a sample.
	warm, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	warm.Body.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "solar_http_requests_total")
}

func TestAssessMultipart(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("Assess", mock.Anything, mock.MatchedBy(func(r engine.Request) bool {
		return r.Address.City == "Charlottetown" &&
			r.PropertyType == model.PropertyFarm &&
			r.Image.MediaType == "image/png" &&
			r.ConsumptionKWh == 9000
	})).Return(&model.Assessment{ID: "abc", CreatedAt: time.Now()}, nil)

	ts := newTestServer(t, svc, config.ServerConfig{})

	fields := addressFields()
	fields["propertyType"] = "Farm"
	fields["consumptionKwh"] = "9000"
	body, ct := multipartBody(t, fields, &formFile{data: pngBytes(512)})

	resp, err := http.Post(ts.URL+"/api/v1/assessments", ct, body)
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.Contains(t, string(out.Data), `"id":"abc"`)
	svc.AssertExpectations(t)
}

func TestAssessJSONBase64(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("Assess", mock.Anything, mock.MatchedBy(func(r engine.Request) bool {
		return r.Image.MediaType == "image/webp" &&
			r.PropertyType == model.PropertyResidential &&
			r.Address.Street == "123 Queen St"
	})).Return(&model.Assessment{ID: "json"}, nil)

	ts := newTestServer(t, svc, config.ServerConfig{})

	payload := map[string]any{
		"address": map[string]string{
			"street": " 123 Queen St ", "city": "Charlottetown", "postalCode": "C1A 4B3", "country": "Canada",
		},
		"image": "data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("RIFF....WEBPVP8 ")),
	}
	raw, _ := json.Marshal(payload)

	resp, err := http.Post(ts.URL+"/api/v1/assessments", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	svc.AssertExpectations(t)
}

func TestAssessValidation(t *testing.T) {
	tests := []struct {
		name       string
		fields     map[string]string
		file       *formFile
		maxMB      int
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing image",
			fields:     addressFields(),
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeMissingImage,
		},
		{
			name:       "invalid type",
			fields:     addressFields(),
			file:       &formFile{data: []byte("just some text"), contentType: "text/plain"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeInvalidType,
		},
		{
			name:       "too large",
			fields:     addressFields(),
			file:       &formFile{data: pngBytes(3 << 19)},
			maxMB:      1,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   apperr.CodeFileTooLarge,
		},
		{
			name:       "incomplete address",
			fields:     map[string]string{"street": "123 Queen St", "country": "Canada"},
			file:       &formFile{data: pngBytes(64)},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeIncompleteAddress,
		},
		{
			name: "blank address field",
			fields: map[string]string{
				"street": "123 Queen St", "city": "   ", "postalCode": "C1A 4B3", "country": "Canada",
			},
			file:       &formFile{data: pngBytes(64)},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeIncompleteAddress,
		},
		{
			name: "unknown property type",
			fields: func() map[string]string {
				f := addressFields()
				f["propertyType"] = "castle"
				return f
			}(),
			file:       &formFile{data: pngBytes(64)},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockAssessor)
			ts := newTestServer(t, svc, config.ServerConfig{MaxUploadMB: tt.maxMB})

			body, ct := multipartBody(t, tt.fields, tt.file)
			resp, err := http.Post(ts.URL+"/api/v1/assessments", ct, body)
			require.NoError(t, err)
			out := decode(t, resp)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.False(t, out.Success)
			require.NotNil(t, out.Error)
			assert.Equal(t, tt.wantCode, out.Error.Code)
			svc.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
		})
	}
}

func TestAssessIncompleteAddressNamesFields(t *testing.T) {
	ts := newTestServer(t, new(mockAssessor), config.ServerConfig{})

	body, ct := multipartBody(t, map[string]string{"street": "1 Main"}, &formFile{data: pngBytes(64)})
	resp, err := http.Post(ts.URL+"/api/v1/assessments", ct, body)
	require.NoError(t, err)
	out := decode(t, resp)

	require.NotNil(t, out.Error)
	assert.Contains(t, out.Error.Message, "city")
	assert.Contains(t, out.Error.Message, "postalCode")
	assert.Contains(t, out.Error.Message, "country")
}

func TestAssessHEICDeclared(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("Assess", mock.Anything, mock.MatchedBy(func(r engine.Request) bool {
		return r.Image.MediaType == "image/heic"
	})).Return(&model.Assessment{ID: "heic"}, nil)
	ts := newTestServer(t, svc, config.ServerConfig{})

	body, ct := multipartBody(t, addressFields(), &formFile{data: []byte("....ftypheic"), contentType: "image/heic"})
	resp, err := http.Post(ts.URL+"/api/v1/assessments", ct, body)
	require.NoError(t, err)
	decode(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	svc.AssertExpectations(t)
}

func TestAssessAnalysisFailed(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("Assess", mock.Anything, mock.Anything).
		Return(nil, apperr.AnalysisFailed(eris.New("vision: all providers failed")))
	ts := newTestServer(t, svc, config.ServerConfig{})

	body, ct := multipartBody(t, addressFields(), &formFile{data: pngBytes(64)})
	resp, err := http.Post(ts.URL+"/api/v1/assessments", ct, body)
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.NotNil(t, out.Error)
	assert.Equal(t, apperr.CodeAnalysisFailed, out.Error.Code)
	assert.True(t, out.Error.Retryable)
	assert.NotContains(t, out.Error.Message, "providers")
}

func TestAssessUnsupportedContentType(t *testing.T) {
	ts := newTestServer(t, new(mockAssessor), config.ServerConfig{})

	resp, err := http.Post(ts.URL+"/api/v1/assessments", "text/plain", strings.NewReader("hi"))
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperr.CodeInvalidRequest, out.Error.Code)
}

func TestRoofAnalysis(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("AnalyzeRoof", mock.Anything, mock.Anything, "south-facing bungalow").
		Return(model.RoofAnalysis{AreaM2: 120, Shading: model.ShadingLow}, nil)
	ts := newTestServer(t, svc, config.ServerConfig{})

	body, ct := multipartBody(t, map[string]string{"prompt": "south-facing bungalow"}, &formFile{data: pngBytes(64)})
	resp, err := http.Post(ts.URL+"/api/v1/roof-analysis", ct, body)
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	svc.AssertExpectations(t)
}

func TestRoofAnalysisMissingImage(t *testing.T) {
	ts := newTestServer(t, new(mockAssessor), config.ServerConfig{})

	resp, err := http.Post(ts.URL+"/api/v1/roof-analysis", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperr.CodeMissingImage, out.Error.Code)
}

func TestIrradiance(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("Irradiance", mock.Anything, 46.2382, -63.1311).
		Return(model.IrradianceProfile{AnnualGHI: 1350, DataSource: model.DataSourceLive})
	ts := newTestServer(t, svc, config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/api/v1/irradiance?lat=46.2382&lng=-63.1311")
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	svc.AssertExpectations(t)
}

func TestIrradianceInvalidQuery(t *testing.T) {
	ts := newTestServer(t, new(mockAssessor), config.ServerConfig{})

	for _, q := range []string{"lng=-63", "lat=abc&lng=-63", "lat=95&lng=-63", "lat=46&lng=-200"} {
		resp, err := http.Get(ts.URL + "/api/v1/irradiance?" + q)
		require.NoError(t, err)
		out := decode(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Equal(t, apperr.CodeInvalidRequest, out.Error.Code, q)
	}
}

func TestIncentives(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("IncentivesFor", model.PropertyBusiness, 25.0, 0.0).
		Return(model.IncentiveSummary{PropertyType: model.PropertyBusiness, TotalFunding: 8750})
	ts := newTestServer(t, svc, config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/api/v1/incentives?propertyType=business&systemSizeKw=25")
	require.NoError(t, err)
	out := decode(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(out.Data), "8750")
	svc.AssertExpectations(t)
}

func TestIncentivesInvalid(t *testing.T) {
	ts := newTestServer(t, new(mockAssessor), config.ServerConfig{})

	for _, q := range []string{"", "systemSizeKw=0", "systemSizeKw=6&cost=-1", "systemSizeKw=6&propertyType=castle"} {
		resp, err := http.Get(ts.URL + "/api/v1/incentives?" + q)
		require.NoError(t, err)
		out := decode(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Equal(t, apperr.CodeInvalidRequest, out.Error.Code, q)
	}
}

func TestHistoryDisabled(t *testing.T) {
	svc := new(mockAssessor)
	svc.On("History").Return(nil)
	ts := newTestServer(t, svc, config.ServerConfig{})

	for _, path := range []string{"/api/v1/assessments", "/api/v1/assessments/abc"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		out := decode(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, apperr.CodeNotFound, out.Error.Code, path)
	}
}

func TestGetAssessment(t *testing.T) {
	hist := new(mockStore)
	hist.On("GetAssessment", mock.Anything, "abc").Return(&model.Assessment{ID: "abc"}, nil)
	hist.On("GetAssessment", mock.Anything, "missing").Return(nil, eris.Wrap(store.ErrNotFound, "store: get"))

	svc := new(mockAssessor)
	svc.On("History").Return(hist)
	ts := newTestServer(t, svc, config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/api/v1/assessments/abc")
	require.NoError(t, err)
	out := decode(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(out.Data), `"id":"abc"`)

	resp, err = http.Get(ts.URL + "/api/v1/assessments/missing")
	require.NoError(t, err)
	out = decode(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, apperr.CodeNotFound, out.Error.Code)
}

func TestListAssessments(t *testing.T) {
	hist := new(mockStore)
	hist.On("ListAssessments", mock.Anything, store.ListFilter{PropertyType: model.PropertyFarm, Limit: 5, Offset: 10}).
		Return([]store.Summary{{ID: "a", Grade: "B"}}, nil)
	hist.On("ListAssessments", mock.Anything, store.ListFilter{}).Return(nil, nil)

	svc := new(mockAssessor)
	svc.On("History").Return(hist)
	ts := newTestServer(t, svc, config.ServerConfig{})

	resp, err := http.Get(ts.URL + "/api/v1/assessments?propertyType=farm&limit=5&offset=10")
	require.NoError(t, err)
	out := decode(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(out.Data), `"grade":"B"`)

	resp, err = http.Get(ts.URL + "/api/v1/assessments")
	require.NoError(t, err)
	out = decode(t, resp)
	assert.Equal(t, "[]", string(out.Data))

	resp, err = http.Get(ts.URL + "/api/v1/assessments?limit=-1")
	require.NoError(t, err)
	out = decode(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	hist.AssertExpectations(t)
}

func TestCORSPreflight(t *testing.T) {
	srv := New(new(mockAssessor), config.ServerConfig{AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/assessments", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
