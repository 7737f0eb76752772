package neverbounce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmerrifield20/neverbounce-go/pkg/client"
)

// Endpoint paths.
const (
	AccountPath = "/v3/account"
	SinglePath  = "/v3/single"
)

// Config holds API credentials and transport settings.
type Config struct {
	APIKey    string
	APISecret string
	// Timeout bounds a single HTTP exchange. Zero means no timeout.
	Timeout time.Duration
	// BaseURL defaults to client.DefaultBaseURL.
	BaseURL   string
	UserAgent string
}

// Client is the NeverBounce API client. It is safe for concurrent use.
type Client struct {
	cfg       Config
	transport *client.Client
}

var _ client.Owner = (*Client)(nil)

// New creates a Client. opts configure the underlying transport.
func New(cfg Config, opts ...client.Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = client.DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}

	c := &Client{cfg: cfg}
	t, err := client.New(c, opts...)
	if err != nil {
		return nil, fmt.Errorf("neverbounce: %w", err)
	}
	c.transport = t
	return c, nil
}

// Config implements client.Owner.
func (c *Client) Config() client.Config {
	return client.Config{
		APIKey:    c.cfg.APIKey,
		APISecret: c.cfg.APISecret,
		Timeout:   c.cfg.Timeout,
		BaseURL:   c.cfg.BaseURL,
		UserAgent: c.cfg.UserAgent,
	}
}

// RequestOptions implements client.Owner.
func (c *Client) RequestOptions(d client.Descriptor) client.RequestOptions {
	return client.NewRequestOptions(c.cfg.BaseURL, d.Path).
		WithHeader("Accept", "application/json").
		WithHeader("User-Agent", c.cfg.UserAgent).
		WithHeaders(d.Header).
		WithBasicAuth(d.Auth)
}

// Transport returns the underlying authenticated request client.
func (c *Client) Transport() *client.Client { return c.transport }

// AccountInfo is the balance and job summary of the account.
type AccountInfo struct {
	Credits        Count   `json:"credits"`
	JobsCompleted  Count   `json:"jobs_completed"`
	JobsProcessing Count   `json:"jobs_processing"`
	ExecutionTime  float64 `json:"execution_time"`
}

// Account returns the account's credit balance and job counts.
func (c *Client) Account(ctx context.Context) (*AccountInfo, error) {
	resp, err := c.transport.Request(ctx, client.Descriptor{Path: AccountPath}, nil)
	if err != nil {
		return nil, err
	}
	var info AccountInfo
	if err := resp.Decode(&info); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &info, nil
}

// SingleResult is the verification outcome of one address.
type SingleResult struct {
	Email         string  `json:"email"`
	Result        Result  `json:"result"`
	ResultCode    int     `json:"result_code"`
	ExecutionTime float64 `json:"execution_time"`
}

// Single verifies one email address.
func (c *Client) Single(ctx context.Context, email string) (*SingleResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("neverbounce: email is required")
	}

	resp, err := c.transport.Request(ctx, client.Descriptor{Path: SinglePath}, client.NewPayload("email", email))
	if err != nil {
		return nil, err
	}
	var res SingleResult
	if err := resp.Decode(&res); err != nil {
		return nil, fmt.Errorf("decode single: %w", err)
	}
	res.Email = email
	res.ResultCode = int(res.Result)
	return &res, nil
}

// Raw sends an authenticated request to an arbitrary endpoint and returns
// the decoded body.
func (c *Client) Raw(ctx context.Context, path string, p client.Payload) (client.Response, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.transport.Request(ctx, client.Descriptor{Path: path}, p)
}

// AccessToken returns the current access token, fetching one if needed.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	return c.transport.AccessToken(ctx)
}
