package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/pkg/errs"
	"github.com/lectern-ai/lectern/internal/pkg/response"
)

// handleError maps the internal error taxonomy onto HTTP statuses with a
// {detail} body.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)

	var confErr *errs.ConfigurationError
	var embErr *errs.IncompatibleEmbeddingsError
	switch {
	case errors.Is(err, errs.ErrValidation):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.As(err, &confErr):
		response.Error(c, http.StatusBadRequest, confErr.Error())
	case errors.As(err, &embErr):
		response.Error(c, http.StatusConflict, embErr.Error())
	case errors.Is(err, errs.ErrGeneration):
		response.Error(c, http.StatusBadGateway, err.Error())
	default:
		if pe, ok := errs.AsProviderError(err); ok {
			response.Error(c, providerStatus(pe.Kind), pe.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}

func providerStatus(kind errs.ProviderErrorKind) int {
	switch kind {
	case errs.ProviderErrAuth:
		return http.StatusUnauthorized
	case errs.ProviderErrRateLimit:
		return http.StatusTooManyRequests
	case errs.ProviderErrBadRequest:
		return http.StatusBadRequest
	case errs.ProviderErrNotFound:
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
