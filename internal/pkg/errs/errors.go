package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("invalid request")
	ErrConflict   = errors.New("conflict")
	ErrGeneration = errors.New("generation failed")
	ErrInternal   = errors.New("internal")
)

func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// ConfigurationError reports a missing or unusable provider setting.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required setting: %s", e.Field)
}

// IncompatibleEmbeddingsError is raised when a workspace holds completed
// documents embedded under more than one (provider, model) fingerprint.
type IncompatibleEmbeddingsError struct {
	Want      string
	Documents []string
}

func (e *IncompatibleEmbeddingsError) Error() string {
	return fmt.Sprintf(
		"workspace contains documents embedded with a different model than the active one (%s): %s; reprocess them or switch the embedding model back",
		e.Want, strings.Join(e.Documents, ", "),
	)
}

type ProviderErrorKind string

const (
	ProviderErrAuth       ProviderErrorKind = "auth"
	ProviderErrRateLimit  ProviderErrorKind = "rate_limit"
	ProviderErrNetwork    ProviderErrorKind = "network"
	ProviderErrServer     ProviderErrorKind = "server"
	ProviderErrBadRequest ProviderErrorKind = "bad_request"
	ProviderErrNotFound   ProviderErrorKind = "not_found"
)

// ProviderError classifies a transport failure from a remote provider.
type ProviderError struct {
	Kind ProviderErrorKind
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provider error: %s", e.Kind)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ProviderErrRateLimit, ProviderErrNetwork, ProviderErrServer:
		return true
	}
	return false
}

func NewProviderError(kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Err: err}
}

func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
