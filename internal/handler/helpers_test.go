package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

func runHandleError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("POST", "/chat", nil)
	handleError(c, err)
	return recorder
}

func TestHandleErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "validation", err: errs.Validationf("bad input"), wantStatus: http.StatusBadRequest},
		{name: "not found", err: errs.NotFoundf("document 9"), wantStatus: http.StatusNotFound},
		{name: "configuration", err: &errs.ConfigurationError{Field: "openai_api_key"}, wantStatus: http.StatusBadRequest},
		{name: "incompatible embeddings", err: &errs.IncompatibleEmbeddingsError{Want: "openai/text-embedding-3-small", Documents: []string{"old.pdf"}}, wantStatus: http.StatusConflict},
		{name: "generation", err: errs.ErrGeneration, wantStatus: http.StatusBadGateway},
		{name: "provider auth", err: errs.NewProviderError(errs.ProviderErrAuth, errors.New("bad key")), wantStatus: http.StatusUnauthorized},
		{name: "provider rate limit", err: errs.NewProviderError(errs.ProviderErrRateLimit, nil), wantStatus: http.StatusTooManyRequests},
		{name: "provider server", err: errs.NewProviderError(errs.ProviderErrServer, nil), wantStatus: http.StatusBadGateway},
		{name: "provider network", err: errs.NewProviderError(errs.ProviderErrNetwork, nil), wantStatus: http.StatusBadGateway},
		{name: "provider bad request", err: errs.NewProviderError(errs.ProviderErrBadRequest, nil), wantStatus: http.StatusBadRequest},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := runHandleError(t, tt.err)
			require.Equal(t, tt.wantStatus, recorder.Code)
			require.Contains(t, recorder.Body.String(), "detail")
		})
	}
}

func TestHandleErrorNamesAffectedDocuments(t *testing.T) {
	err := &errs.IncompatibleEmbeddingsError{
		Want:      "huggingface/all-mpnet-base-v2",
		Documents: []string{"minilm-notes.pdf"},
	}
	recorder := runHandleError(t, err)
	require.Equal(t, http.StatusConflict, recorder.Code)
	require.Contains(t, recorder.Body.String(), "minilm-notes.pdf")
}

func TestMaskSecret(t *testing.T) {
	require.Equal(t, "", maskSecret(""))
	require.Equal(t, "********", maskSecret("short"))
	require.Equal(t, "sk-a...wxyz", maskSecret("sk-abcdefghijklmnopqrstuvwxyz"))
}
