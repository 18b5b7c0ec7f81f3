// Package client talks to a running keyserver over HTTP.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// Response is the raw outcome of a call. Callers decide how to present it;
// non-2xx statuses are not errors at this layer.
type Response struct {
	Status int
	Body   string
}

// OK reports whether the server answered with a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client is an HTTP client for the keyserver API.
type Client struct {
	client   *resty.Client
	adminKey string
}

// New creates a client for the server at baseURL. adminKey is sent with
// admin calls and may be empty for Verify and BuyLink.
func New(baseURL, adminKey string) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", "keyctl")
	return &Client{client: client, adminKey: adminKey}
}

// Verify checks key and binds it to machineID on first use.
func (c *Client) Verify(ctx context.Context, key, machineID string) (*Response, error) {
	return c.send(ctx, http.MethodPost, "/api/verify", map[string]string{
		"key":        key,
		"machine_id": machineID,
	})
}

// Add issues key to email. An empty expires lets the server pick the default.
func (c *Client) Add(ctx context.Context, key, email, expires string) (*Response, error) {
	body := map[string]string{
		"activation_key": key,
		"user_email":     email,
		"admin":          c.adminKey,
	}
	if expires != "" {
		body["expires"] = expires
	}
	return c.send(ctx, http.MethodPost, "/api/add", body)
}

// Table lists every key.
func (c *Client) Table(ctx context.Context) (*Response, error) {
	return c.send(ctx, http.MethodPost, "/api/table", map[string]string{
		"admin": c.adminKey,
	})
}

// Remove deletes the keys of email, or only key when it is not empty.
func (c *Client) Remove(ctx context.Context, email, key string) (*Response, error) {
	body := map[string]string{
		"user_email": email,
		"admin":      c.adminKey,
	}
	if key != "" {
		body["specify_key"] = key
	}
	return c.send(ctx, http.MethodDelete, "/api/delete", body)
}

// BuyLink fetches the purchase link.
func (c *Client) BuyLink(ctx context.Context) (*Response, error) {
	return c.send(ctx, http.MethodGet, "/where-buy", nil)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*Response, error) {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return &Response{Status: resp.StatusCode(), Body: resp.String()}, nil
}
