package opnsense

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// Client issues authenticated requests against an OPNsense instance.
type Client struct {
	rc *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithInsecureTLS disables certificate verification. Most appliances ship a
// self-signed certificate on the management port.
func WithInsecureTLS() Option {
	return func(c *Client) {
		c.rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) // #nosec G402
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.rc.SetTimeout(d)
	}
}

// NewClient builds a client for the given API base URL and key/secret pair.
func NewClient(baseURL, key, secret string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(key, secret).
		SetTimeout(defaultTimeout).
		SetHeader("Accept", "application/json")

	c := &Client{rc: rc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned for any non-success HTTP status. It keeps the raw
// response body for operator diagnosis.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// searchRequest is the standard OPNsense grid-search body. rowCount -1
// requests the full listing in one page.
type searchRequest struct {
	Current      int    `json:"current"`
	RowCount     int    `json:"rowCount"`
	SearchPhrase string `json:"searchPhrase"`
}

// AddResult is the standard response of add/set mutations.
type AddResult struct {
	Result      string         `json:"result"`
	UUID        string         `json:"uuid"`
	Validations map[string]any `json:"validations,omitempty"`
}

// Saved reports whether the mutation was accepted.
func (r *AddResult) Saved() bool {
	return r.Result == "saved" || r.Result == "ok"
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	req := c.rc.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{Method: "POST", Path: path, Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	resp, err := c.rc.R().SetContext(ctx).SetResult(out).Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{Method: "GET", Path: path, Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

// search runs a grid search and returns the rows.
func search[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out struct {
		Rows []T `json:"rows"`
	}
	if err := c.post(ctx, path, searchRequest{Current: 1, RowCount: -1}, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// add posts a mutation and verifies the appliance accepted it.
func (c *Client) add(ctx context.Context, path string, body any) (*AddResult, error) {
	var res AddResult
	if err := c.post(ctx, path, body, &res); err != nil {
		return nil, err
	}
	if !res.Saved() {
		return nil, fmt.Errorf("POST %s: rejected with result %q (validations: %v)", path, res.Result, res.Validations)
	}
	return &res, nil
}
