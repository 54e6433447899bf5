package httpapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
)

// HTTPLogger writes one structured entry per request
func HTTPLogger() echo.MiddlewareFunc {
	log := logging.WithComponent("http")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			// Render the error now so the logged status is the one sent
			if err := next(c); err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			path := req.URL.Path
			if path == "" {
				path = "/"
			}

			entry := log.WithFields(logging.Fields{
				"method":     req.Method,
				"path":       path,
				"uri":        req.RequestURI,
				"remote_ip":  c.RealIP(),
				"user_agent": req.UserAgent(),
				"status":     res.Status,
				"bytes_in":   req.ContentLength,
				"bytes_out":  res.Size,
				"latency":    latency.String(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			})
			switch {
			case res.Status >= 500:
				entry.Error("HTTP request")
			case res.Status >= 400:
				entry.Warn("HTTP request")
			default:
				entry.Info("HTTP request")
			}
			return nil
		}
	}
}
