package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sells-group/solar-engine/internal/apperr"
	"github.com/sells-group/solar-engine/internal/engine"
	"github.com/sells-group/solar-engine/internal/model"
	"github.com/sells-group/solar-engine/internal/store"
)

// assessBody is the JSON form of an assessment or roof analysis request.
type assessBody struct {
	Address        model.Address `json:"address"`
	PropertyType   string        `json:"propertyType"`
	Image          string        `json:"image"`
	ImageType      string        `json:"imageType"`
	Prompt         string        `json:"prompt"`
	ConsumptionKWh float64       `json:"consumptionKwh"`
}

// upload is a decoded request before validation.
type upload struct {
	body      assessBody
	imageData []byte
	imageType string
}

type irradianceQuery struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type incentiveQuery struct {
	SystemSizeKW float64 `json:"systemSizeKw" validate:"gt=0,lte=1000"`
	Cost         float64 `json:"cost" validate:"gte=0"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.breakers != nil {
		body["breakers"] = s.breakers()
	}
	if s.cache != nil {
		body["cache"] = s.cache()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := checkImage(up.imageData, up.imageType, s.maxUpload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	addr, err := s.checkAddress(up.body.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pt := model.PropertyResidential
	if strings.TrimSpace(up.body.PropertyType) != "" {
		if pt, err = engine.ParsePropertyType(up.body.PropertyType); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if up.body.ConsumptionKWh < 0 {
		writeError(w, r, apperr.Validation(apperr.CodeInvalidRequest, "consumptionKwh must not be negative"))
		return
	}

	a, err := s.svc.Assess(r.Context(), engine.Request{
		Address:        addr,
		PropertyType:   pt,
		Image:          img,
		Prompt:         up.body.Prompt,
		ConsumptionKWh: up.body.ConsumptionKWh,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, a)
}

func (s *Server) handleRoofAnalysis(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	img, err := checkImage(up.imageData, up.imageType, s.maxUpload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	roof, err := s.svc.AnalyzeRoof(r.Context(), img, up.body.Prompt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, roof)
}

func (s *Server) handleIrradiance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var in irradianceQuery
	var err error
	if in.Lat, err = requiredFloat(q.Get("lat"), "lat"); err != nil {
		writeError(w, r, err)
		return
	}
	if in.Lng, err = requiredFloat(q.Get("lng"), "lng"); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.validate.Struct(in); err != nil {
		writeError(w, r, invalid(err))
		return
	}
	writeData(w, http.StatusOK, s.svc.Irradiance(r.Context(), in.Lat, in.Lng))
}

func (s *Server) handleIncentives(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pt := model.PropertyResidential
	if raw := q.Get("propertyType"); raw != "" {
		var err error
		if pt, err = engine.ParsePropertyType(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}

	var in incentiveQuery
	var err error
	if in.SystemSizeKW, err = requiredFloat(q.Get("systemSizeKw"), "systemSizeKw"); err != nil {
		writeError(w, r, err)
		return
	}
	if raw := q.Get("cost"); raw != "" {
		if in.Cost, err = requiredFloat(raw, "cost"); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := s.validate.Struct(in); err != nil {
		writeError(w, r, invalid(err))
		return
	}
	writeData(w, http.StatusOK, s.svc.IncentivesFor(pt, in.SystemSizeKW, in.Cost))
}

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	hist := s.svc.History()
	if hist == nil {
		writeError(w, r, apperr.NotFound("assessment history is not enabled"))
		return
	}
	a, err := hist.GetAssessment(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, r, apperr.NotFound("assessment not found"))
		return
	}
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeData(w, http.StatusOK, a)
}

func (s *Server) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	hist := s.svc.History()
	if hist == nil {
		writeError(w, r, apperr.NotFound("assessment history is not enabled"))
		return
	}

	q := r.URL.Query()
	var filter store.ListFilter
	var err error
	if filter.Limit, err = optionalInt(q.Get("limit"), "limit"); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = optionalInt(q.Get("offset"), "offset"); err != nil {
		writeError(w, r, err)
		return
	}
	if raw := q.Get("propertyType"); raw != "" {
		if filter.PropertyType, err = engine.ParsePropertyType(raw); err != nil {
			writeError(w, r, err)
			return
		}
	}

	items, err := hist.ListAssessments(r.Context(), filter)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	if items == nil {
		items = []store.Summary{}
	}
	writeData(w, http.StatusOK, items)
}

// readUpload decodes a multipart form or a JSON body, bounding the body
// size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload*2+multipartOverhead)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "multipart/form-data":
		return s.readMultipart(r)
	case "application/json", "":
		return s.readJSON(r)
	default:
		return upload{}, apperr.Validation(apperr.CodeInvalidRequest,
			"content type must be multipart/form-data or application/json")
	}
}

func (s *Server) readMultipart(r *http.Request) (upload, error) {
	if err := r.ParseMultipartForm(s.maxUpload + multipartOverhead); err != nil {
		return upload{}, bodyError(err, s.maxUpload)
	}
	defer r.MultipartForm.RemoveAll()

	var up upload
	data, declared, err := readFormImage(r.MultipartForm, s.maxUpload)
	if err != nil {
		return upload{}, err
	}
	up.imageData, up.imageType = data, declared

	up.body = assessBody{
		Address: model.Address{
			Street:     r.FormValue("street"),
			City:       r.FormValue("city"),
			PostalCode: r.FormValue("postalCode"),
			Country:    r.FormValue("country"),
		},
		PropertyType: r.FormValue("propertyType"),
		Prompt:       r.FormValue("prompt"),
	}
	if raw := r.FormValue("consumptionKwh"); raw != "" {
		if up.body.ConsumptionKWh, err = requiredFloat(raw, "consumptionKwh"); err != nil {
			return upload{}, err
		}
	}
	return up, nil
}

func (s *Server) readJSON(r *http.Request) (upload, error) {
	var body assessBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && err != io.EOF {
		return upload{}, bodyError(err, s.maxUpload)
	}
	data, declared, err := decodeBase64Image(body.Image, body.ImageType)
	if err != nil {
		return upload{}, err
	}
	return upload{body: body, imageData: data, imageType: declared}, nil
}

// checkAddress trims and validates the address fields.
func (s *Server) checkAddress(a model.Address) (model.Address, error) {
	a = model.Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
	err := s.validate.Struct(a)
	if err == nil {
		return a, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return a, apperr.Internal(err)
	}
	missing := make([]string, len(verrs))
	for i, fe := range verrs {
		missing[i] = fe.Field()
	}
	return a, apperr.Validation(apperr.CodeIncompleteAddress,
		"address is incomplete, missing: "+strings.Join(missing, ", "))
}

// invalid converts validator errors on query structs into a caller error.
func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal(err)
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fe.Field() + " fails " + fe.Tag()
		if fe.Param() != "" {
			parts[i] += "=" + fe.Param()
		}
	}
	return apperr.Validation(apperr.CodeInvalidRequest, "invalid parameters: "+strings.Join(parts, "; "))
}

func requiredFloat(raw, name string) (float64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, apperr.Validation(apperr.CodeInvalidRequest, name+" is required")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, apperr.Validation(apperr.CodeInvalidRequest, name+" must be a number")
	}
	return v, nil
}

func optionalInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, apperr.Validation(apperr.CodeInvalidRequest, name+" must be a non-negative integer")
	}
	return v, nil
}

// tagName makes validator report json field names.
func tagName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
