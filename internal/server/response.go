package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/solar-engine/internal/apperr"
)

// envelope is the body of every API response.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response", zap.Error(err))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps err to an envelope. Detail of non-validation errors is
// logged, never returned.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Internal(err)
	}
	if e.Kind != apperr.KindValidation && e.Kind != apperr.KindNotFound {
		zap.L().Error("server: request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", e.Code),
			zap.Error(err),
		)
	}
	writeJSON(w, e.HTTPStatus(), envelope{
		Error: &errorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Code == apperr.CodeAnalysisFailed,
		},
	})
}
