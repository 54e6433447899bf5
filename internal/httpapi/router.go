package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// ServerOptions configures the echo instance
type ServerOptions struct {
	Debug          bool
	MaxUploadBytes int64
}

// NewServer builds the echo instance with middleware and routes
func NewServer(opts ServerOptions, handler *Handler) *echo.Echo {
	e := echo.New()
	e.Debug = opts.Debug
	e.HideBanner = true
	e.HidePort = true
	e.Logger = logging.NewEchoLogger(logging.StandardLogger())
	e.HTTPErrorHandler = ErrorHandler

	// Bulk uploads wait on the directory for every row, so no write timeout here
	e.Server.ReadHeaderTimeout = readHeaderTimeout
	e.Server.IdleTimeout = idleTimeout

	// /hospitals/ and /hospitals reach the same handler
	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	// The access log wraps Recover so panicking requests are logged with their 500
	e.Use(HTTPLogger())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: logPanic,
	}))
	if opts.MaxUploadBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(opts.MaxUploadBytes, 10) + "B"))
	}

	RegisterRoutes(e, handler)
	return e
}

// RegisterRoutes sets up HTTP routes
func RegisterRoutes(e *echo.Echo, h *Handler) {
	// GET /
	e.GET("/", h.Health)
	// GET /version
	e.GET("/version", h.GetVersion)

	// POST /hospitals/bulk
	e.POST("/hospitals/bulk", h.BulkCreate)

	// POST /hospitals/, GET /hospitals/
	e.POST("/hospitals", h.CreateHospital)
	e.GET("/hospitals", h.ListHospitals)

	// GET /hospitals/batch/{batch_id}
	e.GET("/hospitals/batch/:batch_id", h.ListBatch)

	// GET|PUT|DELETE /hospitals/{id}
	e.GET("/hospitals/:id", h.GetHospital)
	e.PUT("/hospitals/:id", h.UpdateHospital)
	e.DELETE("/hospitals/:id", h.DeleteHospital)
}

func logPanic(c echo.Context, err error, stack []byte) error {
	logging.WithComponent("httpapi").WithFields(logging.Fields{
		"error":      err,
		"stack":      string(stack),
		"method":     c.Request().Method,
		"path":       c.Request().URL.Path,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	}).Error("Panic recovered")
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
}
