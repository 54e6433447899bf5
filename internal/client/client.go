package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ryabkov82/hospital-bulk-server/internal/logging"
)

const (
	// DefaultBatchTimeout bounds create and activate calls made for a bulk upload
	DefaultBatchTimeout = 20 * time.Second
	// DefaultProxyTimeout bounds the pass-through calls
	DefaultProxyTimeout = 15 * time.Second

	maxResponseBytes = 8 << 20
)

// Client calls the remote hospital directory.
// A single Client is safe for concurrent use and shares one connection pool.
type Client struct {
	client       *http.Client
	baseURL      string
	batchTimeout time.Duration
	proxyTimeout time.Duration
	log          *logrus.Entry
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithBatchTimeout sets the deadline for create and activate calls
func WithBatchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.batchTimeout = d
		}
	}
}

// WithProxyTimeout sets the deadline for pass-through calls
func WithProxyTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.proxyTimeout = d
		}
	}
}

// New creates a client for the directory at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		// Deadlines are applied per call through the request context
		client:       &http.Client{},
		baseURL:      strings.TrimRight(baseURL, "/"),
		batchTimeout: DefaultBatchTimeout,
		proxyTimeout: DefaultProxyTimeout,
		log:          logging.WithComponent("directory-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the directory base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response is a raw reply from the directory
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) httpError() *HTTPError {
	return &HTTPError{
		StatusCode: r.StatusCode,
		Body:       string(r.Body),
	}
}

// do sends one request under its own deadline and reads the whole body
func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, payload interface{}) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		var data []byte
		switch p := payload.(type) {
		case json.RawMessage:
			data = p
		default:
			var err error
			data, err = json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("marshal error: %w", err)
			}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request error: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RequestError{Method: method, Path: path, Err: fmt.Errorf("read response: %w", err)}
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

func hospitalPath(id int) string {
	return "/hospitals/" + strconv.Itoa(id)
}
