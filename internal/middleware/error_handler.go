package middleware

import (
	"errors"
	"net/http"

	"farmDirect/domain"
	"farmDirect/pkg/logger"
	jsonres "farmDirect/pkg/response"

	"github.com/labstack/echo/v4"
)

var errorCodes = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{domain.ErrValidation, http.StatusBadRequest, "BAD_REQUEST"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{domain.ErrUpstream, http.StatusBadGateway, "BAD_GATEWAY"},
}

// ErrorHandler renders every error returned by a handler as a JSON error
// body. Domain errors keep their message; anything unclassified becomes a
// generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), err)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		logger.Error("failed to write error response", writeErr)
	}
}

func errorResponse(err error) (int, jsonres.ErrorBody) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, jsonres.Error(httpCode(httpErr.Code), msg, nil)
	}

	for _, ec := range errorCodes {
		if errors.Is(err, ec.kind) {
			return ec.status, jsonres.Error(ec.code, domain.Message(err, http.StatusText(ec.status)), nil)
		}
	}

	return http.StatusInternalServerError, jsonres.Error("INTERNAL_SERVER_ERROR", "internal server error", nil)
}

func httpCode(status int) string {
	for _, ec := range errorCodes {
		if ec.status == status {
			return ec.code
		}
	}
	if status == http.StatusMethodNotAllowed {
		return "METHOD_NOT_ALLOWED"
	}
	if status == http.StatusRequestEntityTooLarge {
		return "PAYLOAD_TOO_LARGE"
	}

	return "INTERNAL_SERVER_ERROR"
}
