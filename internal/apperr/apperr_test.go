package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation(CodeMissingImage, "image is required"), http.StatusBadRequest},
		{Validation(CodeFileTooLarge, "too big"), http.StatusRequestEntityTooLarge},
		{NotFound("no such assessment"), http.StatusNotFound},
		{AnalysisFailed(errors.New("vision down")), http.StatusBadGateway},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), tt.err.Code)
	}
}

func TestAsThroughWrapping(t *testing.T) {
	base := Validation(CodeIncompleteAddress, "city is required")
	wrapped := fmt.Errorf("handler: %w", base)

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeIncompleteAddress, e.Code)
	assert.Equal(t, KindValidation, KindOf(wrapped))
	assert.Equal(t, CodeIncompleteAddress, CodeOf(wrapped))

	assert.Equal(t, CodeAnalysisFailed, CodeOf(errors.New("plain")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestAnalysisFailedKeepsCause(t *testing.T) {
	cause := errors.New("all providers failed")
	err := AnalysisFailed(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "ANALYSIS_FAILED")
	assert.NotContains(t, err.Message, "providers")
}
