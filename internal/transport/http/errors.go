package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coldchain/compliance/internal/domain"
)

const (
	kindUnauthorized = "unauthorized"
	kindForbidden    = "forbidden"
	kindInternal     = "internal"
)

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func abortWithError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, errorEnvelope{Error: errorBody{Kind: kind, Message: message}})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound, domain.KindRangeNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError maps a domain error onto the error envelope. Storage and
// unclassified errors are logged and their details are not returned.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, kindInternal, "internal error")
		return
	}

	if de.Kind == domain.KindStorage {
		logger.Error("storage failure",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWithError(c, http.StatusServiceUnavailable, string(de.Kind), "storage temporarily unavailable")
		return
	}
	abortWithError(c, statusFor(de.Kind), string(de.Kind), de.Message)
}
