package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// CreateHospitalRaw forwards a single create body as is, without batch tagging
func (c *Client) CreateHospitalRaw(ctx context.Context, body json.RawMessage) (*Response, error) {
	return c.do(ctx, c.proxyTimeout, http.MethodPost, "/hospitals/", body)
}

// GetHospital fetches one hospital
func (c *Client) GetHospital(ctx context.Context, id int) (*Response, error) {
	return c.do(ctx, c.proxyTimeout, http.MethodGet, hospitalPath(id), nil)
}

// ListHospitals fetches every hospital
func (c *Client) ListHospitals(ctx context.Context) (*Response, error) {
	return c.do(ctx, c.proxyTimeout, http.MethodGet, "/hospitals/", nil)
}

// ListBatch fetches the hospitals created under batchID
func (c *Client) ListBatch(ctx context.Context, batchID string) (*Response, error) {
	return c.do(ctx, c.proxyTimeout, http.MethodGet, "/hospitals/batch/"+url.PathEscape(batchID), nil)
}

// UpdateHospital replaces one hospital with body
func (c *Client) UpdateHospital(ctx context.Context, id int, body json.RawMessage) (*Response, error) {
	return c.do(ctx, c.proxyTimeout, http.MethodPut, hospitalPath(id), body)
}

// DeleteHospital deletes one hospital
func (c *Client) DeleteHospital(ctx context.Context, id int) (*Response, error) {
	return c.do(ctx, c.proxyTimeout, http.MethodDelete, hospitalPath(id), nil)
}
