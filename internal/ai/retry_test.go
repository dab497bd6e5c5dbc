package ai

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

func TestWithRetryRetriesRetryableKinds(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errs.NewProviderError(errs.ProviderErrRateLimit, errors.New("429"))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		return errs.NewProviderError(errs.ProviderErrAuth, errors.New("401"))
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), func() error {
		calls++
		return errs.NewProviderError(errs.ProviderErrNetwork, errors.New("timeout"))
	})
	require.Error(t, err)
	require.Equal(t, retryMaxTries, calls)
}

func TestWithRetryPassesPlainErrorsThrough(t *testing.T) {
	calls := 0
	sentinel := errors.New("logic bug")
	err := withRetry(context.Background(), func() error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   errs.ProviderErrorKind
	}{
		{status: http.StatusUnauthorized, want: errs.ProviderErrAuth},
		{status: http.StatusForbidden, want: errs.ProviderErrAuth},
		{status: http.StatusTooManyRequests, want: errs.ProviderErrRateLimit},
		{status: http.StatusNotFound, want: errs.ProviderErrNotFound},
		{status: http.StatusBadRequest, want: errs.ProviderErrBadRequest},
		{status: http.StatusInternalServerError, want: errs.ProviderErrServer},
		{status: http.StatusBadGateway, want: errs.ProviderErrServer},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, classifyStatus(tt.status), "status %d", tt.status)
	}
}

func TestProviderErrorRetryable(t *testing.T) {
	require.True(t, errs.NewProviderError(errs.ProviderErrRateLimit, nil).Retryable())
	require.True(t, errs.NewProviderError(errs.ProviderErrNetwork, nil).Retryable())
	require.True(t, errs.NewProviderError(errs.ProviderErrServer, nil).Retryable())
	require.False(t, errs.NewProviderError(errs.ProviderErrAuth, nil).Retryable())
	require.False(t, errs.NewProviderError(errs.ProviderErrBadRequest, nil).Retryable())
}
