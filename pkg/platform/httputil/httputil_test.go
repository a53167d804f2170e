package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "truthlens/pkg/domain-errors"
)

type validatingRequest struct {
	Name       string
	normalized bool
}

func (r *validatingRequest) Normalize() {
	r.normalized = true
}

func (r *validatingRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("invalid request maps to 400 without details", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidRequest, "No input provided. Please provide text or an image."))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		body := decodeEnvelope(t, w)
		assert.Equal(t, "No input provided. Please provide text or an image.", body["error"])
		assert.NotContains(t, body, "details")
	})

	t.Run("backend rejection mirrors upstream status", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, &dErrors.Error{
			Code:           dErrors.CodeBackendRejected,
			Message:        "not supported",
			Details:        map[string]any{"error": "not supported"},
			UpstreamStatus: http.StatusNotFound,
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, "not supported", body["error"])
		assert.Equal(t, map[string]any{"error": "not supported"}, body["details"])
	})

	t.Run("backend rejection without upstream status falls back to 502", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeBackendRejected, "Backend verification failed"))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("unreachable maps to 503", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.NewWithDetails(dErrors.CodeBackendUnreachable, "Backend service unavailable", "Could not reach the backend service"))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, "Could not reach the backend service", body["details"])
	})

	t.Run("non-domain error maps to 500 gateway processing error", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeEnvelope(t, w)
		assert.Equal(t, "Gateway processing error", body["error"])
		assert.Equal(t, "boom", body["details"])
	})
}

func TestDomainCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code dErrors.Code
		want int
	}{
		{dErrors.CodeInvalidRequest, http.StatusBadRequest},
		{dErrors.CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{dErrors.CodeBackendRejected, http.StatusBadGateway},
		{dErrors.CodeBadGateway, http.StatusBadGateway},
		{dErrors.CodeBackendUnreachable, http.StatusServiceUnavailable},
		{dErrors.CodeBackendTimeout, http.StatusGatewayTimeout},
		{dErrors.CodeInternal, http.StatusInternalServerError},
		{dErrors.Code("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, DomainCodeToHTTPStatus(tt.code))
		})
	}
}

func TestWriteRawJSON(t *testing.T) {
	w := httptest.NewRecorder()
	raw := []byte(`{"Verdict":"FALSE","Confidence":"87%"}`)
	WriteRawJSON(w, http.StatusOK, raw)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, raw, w.Body.Bytes())
}

func TestPrepareRequest(t *testing.T) {
	t.Run("normalizes before validating", func(t *testing.T) {
		req := &validatingRequest{Name: "x"}
		require.NoError(t, PrepareRequest(req))
		assert.True(t, req.normalized)
	})

	t.Run("returns validation error", func(t *testing.T) {
		err := PrepareRequest(&validatingRequest{})
		assert.EqualError(t, err, "name is required")
	})

	t.Run("handles non-validatable types", func(t *testing.T) {
		assert.NoError(t, PrepareRequest(&struct{}{}))
	})
}
