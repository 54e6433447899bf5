package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
)

// ErrorResponse is the body of every error the service itself produces
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ErrorHandler renders errors as {"detail": "..."}.
// Errors other than *echo.HTTPError become a 500 without leaking their text.
func ErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	detail := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	}

	fields := logging.Fields{
		"method":     c.Request().Method,
		"path":       c.Request().URL.Path,
		"status":     code,
		"error":      err,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if code >= http.StatusInternalServerError {
		logging.WithComponent("httpapi").WithFields(fields).Error("Request failed")
	} else {
		logging.WithComponent("httpapi").WithFields(fields).Debug("Request rejected")
	}

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Detail: detail})
}
