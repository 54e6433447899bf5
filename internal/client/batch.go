package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/ryabkov82/hospital-bulk-server/internal/hospital"
	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
)

// createRequest is the body of a directory create call
type createRequest struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	Phone           *string `json:"phone"`
	CreationBatchID string  `json:"creation_batch_id"`
}

// CreateHospital creates one hospital tagged with batchID.
// It never returns an error: HTTP, transport and decoding failures all
// come back as a failed RowResult for rowNo.
func (c *Client) CreateHospital(ctx context.Context, record hospital.Record, batchID string, rowNo int) hospital.RowResult {
	result, err := c.createHospital(ctx, record, batchID, rowNo)
	if err != nil {
		c.log.WithFields(logging.Fields{
			"batch_id": batchID,
			"row":      rowNo,
			"error":    err,
		}).Warn("Create hospital failed")
		return hospital.FailedRow(rowNo, record.Name, failureMessage(err))
	}
	return result
}

func (c *Client) createHospital(ctx context.Context, record hospital.Record, batchID string, rowNo int) (hospital.RowResult, error) {
	resp, err := c.do(ctx, c.batchTimeout, http.MethodPost, "/hospitals/", createRequest{
		Name:            record.Name,
		Address:         record.Address,
		Phone:           record.Phone,
		CreationBatchID: batchID,
	})
	if err != nil {
		return hospital.RowResult{}, err
	}
	if !resp.OK() {
		return hospital.RowResult{}, resp.httpError()
	}

	if !gjson.ValidBytes(resp.Body) {
		return hospital.RowResult{}, errors.New("create response is not valid JSON")
	}
	created := gjson.ParseBytes(resp.Body)
	if !created.IsObject() {
		return hospital.RowResult{}, errors.New("create response is not a JSON object")
	}

	result := hospital.RowResult{
		Row:        rowNo,
		HospitalID: hospital.UnknownID,
		Name:       record.Name,
		Status:     hospital.StatusCreated,
	}
	if id := created.Get("id"); id.Type == gjson.Number {
		result.HospitalID = int(id.Int())
	}
	if name := created.Get("name"); name.Type == gjson.String {
		result.Name = name.String()
	}
	// The directory reports "active" at creation time, before the batch is activated
	if created.Get("active").Bool() {
		result.Status = hospital.StatusCreatedAndActivated
	}

	return result, nil
}

// ActivateBatch activates every hospital created under batchID.
// Activation is best effort: any failure is logged and reported as false.
func (c *Client) ActivateBatch(ctx context.Context, batchID string) bool {
	log := c.log.WithField("batch_id", batchID)

	resp, err := c.do(ctx, c.batchTimeout, http.MethodPatch, "/hospitals/batch/"+url.PathEscape(batchID)+"/activate", nil)
	if err != nil {
		log.WithError(err).Warn("Activate batch failed")
		return false
	}
	if !resp.OK() {
		log.WithError(resp.httpError()).Warn("Activate batch rejected")
		return false
	}
	return true
}
