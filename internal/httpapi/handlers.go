package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/ryabkov82/hospital-bulk-server/internal/client"
	"github.com/ryabkov82/hospital-bulk-server/internal/hospital"
	"github.com/ryabkov82/hospital-bulk-server/internal/ingest"
	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
	"github.com/ryabkov82/hospital-bulk-server/internal/version"
)

const (
	// DefaultMaxRows is the largest bulk upload accepted
	DefaultMaxRows = 20

	uploadField   = "file"
	healthMessage = "Hospital Bulk Processing API is running."
)

// BulkProcessor runs one bulk upload
type BulkProcessor interface {
	Process(ctx context.Context, records []hospital.Record) hospital.BatchReport
}

// Directory is the pass-through part of the remote directory client
type Directory interface {
	CreateHospitalRaw(ctx context.Context, body json.RawMessage) (*client.Response, error)
	GetHospital(ctx context.Context, id int) (*client.Response, error)
	ListHospitals(ctx context.Context) (*client.Response, error)
	ListBatch(ctx context.Context, batchID string) (*client.Response, error)
	UpdateHospital(ctx context.Context, id int, body json.RawMessage) (*client.Response, error)
	DeleteHospital(ctx context.Context, id int) (*client.Response, error)
}

// Handler handles HTTP requests
type Handler struct {
	bulk      BulkProcessor
	directory Directory
	maxRows   int
	log       *logrus.Entry
}

// NewHandler creates a new handler. maxRows <= 0 selects DefaultMaxRows.
func NewHandler(bulk BulkProcessor, directory Directory, maxRows int) *Handler {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Handler{
		bulk:      bulk,
		directory: directory,
		maxRows:   maxRows,
		log:       logging.WithComponent("httpapi"),
	}
}

// BulkCreate handles POST /hospitals/bulk
func (h *Handler) BulkCreate(c echo.Context) error {
	fh, err := c.FormFile(uploadField)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("A CSV file must be uploaded in the '%s' form field.", uploadField))
	}

	if err := ingest.ValidateUploadName(fh.Filename); err != nil {
		return badUpload(err)
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	records, err := ingest.Parse(data)
	if err != nil {
		return badUpload(err)
	}

	if len(records) > h.maxRows {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("CSV cannot contain more than %d hospitals.", h.maxRows))
	}

	h.log.WithFields(logging.Fields{
		"filename":   fh.Filename,
		"rows":       len(records),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	}).Info("Bulk upload accepted")

	report := h.bulk.Process(c.Request().Context(), records)
	return c.JSON(http.StatusOK, report)
}

func badUpload(err error) error {
	if ingestErr, ok := ingest.GetError(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, ingestErr.Message).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}

// CreateHospital handles POST /hospitals/
func (h *Handler) CreateHospital(c echo.Context) error {
	body, err := readObject(c)
	if err != nil {
		return err
	}
	resp, err := h.directory.CreateHospitalRaw(c.Request().Context(), body)
	return relayJSON(c, resp, err)
}

// GetHospital handles GET /hospitals/{id}
func (h *Handler) GetHospital(c echo.Context) error {
	id, err := hospitalID(c)
	if err != nil {
		return err
	}
	resp, err := h.directory.GetHospital(c.Request().Context(), id)
	return relayJSON(c, resp, err)
}

// UpdateHospital handles PUT /hospitals/{id}
func (h *Handler) UpdateHospital(c echo.Context) error {
	id, err := hospitalID(c)
	if err != nil {
		return err
	}
	body, err := readObject(c)
	if err != nil {
		return err
	}
	resp, err := h.directory.UpdateHospital(c.Request().Context(), id, body)
	return relayJSON(c, resp, err)
}

// DeleteHospital handles DELETE /hospitals/{id}
func (h *Handler) DeleteHospital(c echo.Context) error {
	id, err := hospitalID(c)
	if err != nil {
		return err
	}
	resp, err := h.directory.DeleteHospital(c.Request().Context(), id)
	if err != nil {
		return unavailable(err)
	}

	message := string(resp.Body)
	if resp.StatusCode == http.StatusOK {
		message = "Deleted"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  resp.StatusCode,
		"message": message,
	})
}

// ListHospitals handles GET /hospitals/
func (h *Handler) ListHospitals(c echo.Context) error {
	resp, err := h.directory.ListHospitals(c.Request().Context())
	if err != nil {
		return unavailable(err)
	}
	if resp.StatusCode != http.StatusOK {
		return c.JSON(http.StatusOK, map[string]string{
			"error": fmt.Sprintf("Failed to fetch hospitals. Status code: %d", resp.StatusCode),
		})
	}
	return relayJSON(c, resp, nil)
}

// ListBatch handles GET /hospitals/batch/{batch_id}
func (h *Handler) ListBatch(c echo.Context) error {
	batchID := c.Param("batch_id")
	resp, err := h.directory.ListBatch(c.Request().Context(), batchID)
	if err != nil {
		return unavailable(err)
	}
	if resp.StatusCode != http.StatusOK {
		return c.JSON(http.StatusOK, map[string]string{
			"error": fmt.Sprintf("Failed to fetch hospitals for batch %s. Status: %d", batchID, resp.StatusCode),
		})
	}
	return relayJSON(c, resp, nil)
}

// Health handles GET /
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"message": healthMessage,
	})
}

// GetVersion handles GET /version
func (h *Handler) GetVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Info())
}

// hospitalID parses the {id} path segment; anything but an integer is 422
func hospitalID(c echo.Context) (int, error) {
	raw := c.Param("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("Hospital id must be an integer, got %q", raw))
	}
	return id, nil
}

// readObject reads a request body that must be a JSON object
func readObject(c echo.Context) (json.RawMessage, error) {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, "Request body must be a JSON object")
	}
	return data, nil
}

// relayJSON returns the directory's JSON body with 200, whatever status it carried
func relayJSON(c echo.Context, resp *client.Response, err error) error {
	if err != nil {
		return unavailable(err)
	}
	if !gjson.ValidBytes(resp.Body) {
		return echo.NewHTTPError(http.StatusBadGateway,
			fmt.Sprintf("Hospital directory returned a non-JSON response (HTTP %d)", resp.StatusCode))
	}
	return c.JSONBlob(http.StatusOK, resp.Body)
}

func unavailable(err error) error {
	if client.IsRequestError(err) {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("Hospital directory request failed: %v", err)).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("Hospital directory error: %v", err)).SetInternal(err)
}
