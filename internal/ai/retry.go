package ai

import (
	"context"
	"net/http"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
)

const (
	retryBaseDelay = 100 * time.Millisecond
	retryFactor    = 1.5
	retryMaxTries  = 3
)

// withRetry runs fn, retrying retryable provider errors with exponential
// backoff (100ms base, 1.5x factor, 3 attempts total).
func withRetry(ctx context.Context, fn func() error) error {
	delay := retryBaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		pe, ok := errs.AsProviderError(err)
		if !ok || !pe.Retryable() || attempt >= retryMaxTries {
			return err
		}
		logutil.GetLogger(ctx).Warn("retrying provider call",
			zap.Int("attempt", attempt),
			zap.String("kind", string(pe.Kind)),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return errs.NewProviderError(errs.ProviderErrNetwork, ctx.Err())
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * retryFactor)
	}
}

// classifyStatus maps an HTTP status from a provider to the error taxonomy.
func classifyStatus(status int) errs.ProviderErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errs.ProviderErrAuth
	case status == http.StatusTooManyRequests:
		return errs.ProviderErrRateLimit
	case status == http.StatusNotFound:
		return errs.ProviderErrNotFound
	case status >= 500:
		return errs.ProviderErrServer
	case status >= 400:
		return errs.ProviderErrBadRequest
	}
	return errs.ProviderErrNetwork
}

// classifyTransport wraps a transport-level error (timeout, refused
// connection, context deadline) as a retryable network failure.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errs.AsProviderError(err); ok {
		return err
	}
	return errs.NewProviderError(errs.ProviderErrNetwork, err)
}
