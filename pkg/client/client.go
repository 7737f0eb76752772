package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// TokenPath is the token exchange endpoint.
	TokenPath = "/v3/access_token"

	// AccessTokenField is the form field that carries the token on every
	// authenticated request.
	AccessTokenField = "access_token"

	formContentType = "application/x-www-form-urlencoded"
	maxBodyBytes    = 1 << 20
)

var tokenPayload = NewPayload(
	"grant_type", "client_credentials",
	"scope", "basic user",
)

// RequestClient is the authenticated request surface implemented by Client.
type RequestClient interface {
	Request(ctx context.Context, d Descriptor, p Payload) (Response, error)
	SendRaw(ctx context.Context, d Descriptor, p Payload) (Response, error)
	AccessToken(ctx context.Context) (string, error)
}

var _ RequestClient = (*Client)(nil)

// Client sends authenticated form requests and manages the access token.
type Client struct {
	owner      Owner
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	fetches    singleflight.Group

	// token state, guarded by mu
	mu    sync.Mutex
	token string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets the http.Client used for every exchange. The client is
// copied; a non-zero Config.Timeout replaces its Timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		cp := *hc
		c.httpClient = &cp
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithToken seeds the token cache with a previously obtained token.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// New creates a Client owned by owner. The owner's Config is read once.
//
//	c, err := client.New(client.StaticOwner{Cfg: client.Config{
//	    APIKey:    "key",
//	    APISecret: "secret",
//	    Timeout:   30 * time.Second,
//	}}, client.WithLogger(logger))
func New(owner Owner, opts ...Option) (*Client, error) {
	if owner == nil {
		return nil, errors.New("client: owner is required")
	}
	cfg := owner.Config()
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("client: api key and api secret are required")
	}

	c := &Client{
		owner:      owner,
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
	}
	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(owner Owner, opts ...Option) *Client {
	c, err := New(owner, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Request sends p to d with the current access token set on the
// access_token field. If the API reports the token as expired, the cached
// token is dropped and the request is sent once more with a fresh token; the
// outcome of that second attempt is final. p itself is never modified.
func (c *Client) Request(ctx context.Context, d Descriptor, p Payload) (Response, error) {
	log := c.logger.With(zap.String("request_id", uuid.NewString()))

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, log, d, p.With(AccessTokenField, token))
	if !errors.Is(err, ErrAccessTokenExpired) {
		return resp, err
	}

	log.Info("access token rejected, retrying with a new token", zap.String("path", d.Path))
	recordExpiryRetry()
	c.invalidate(token)

	token, err = c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, log, d, p.With(AccessTokenField, token))
}

// SendRaw performs a single form POST and classifies the response. It does
// not attach a token and never retries.
func (c *Client) SendRaw(ctx context.Context, d Descriptor, p Payload) (Response, error) {
	return c.send(ctx, c.logger, d, p)
}

// AccessToken returns the cached token, or exchanges the API credentials
// for a new one. Concurrent callers share a single exchange. The exchange is
// not tied to any one caller's context: a caller whose ctx ends stops
// waiting with a transport error, and the others keep waiting.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if token := c.cachedToken(); token != "" {
		return token, nil
	}

	ch := c.fetches.DoChan(TokenPath, func() (any, error) {
		fetchCtx, cancel := c.detached(ctx)
		defer cancel()
		return c.fetchToken(fetchCtx)
	})
	select {
	case <-ctx.Done():
		return "", newTransportError(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// detached returns a context that keeps ctx's values but not its
// cancellation, bounded by Config.Timeout when one is set.
func (c *Client) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// InvalidateToken drops the cached token. The next request fetches a new one.
func (c *Client) InvalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) cachedToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// invalidate clears the cache only if it still holds token, so a token
// fetched concurrently by another request survives.
func (c *Client) invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
	}
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	if token := c.cachedToken(); token != "" {
		return token, nil
	}

	d := Descriptor{
		Path: TokenPath,
		Auth: &BasicAuth{Username: c.cfg.APIKey, Password: c.cfg.APISecret},
	}
	resp, err := c.send(ctx, c.logger, d, tokenPayload)
	if err != nil {
		recordTokenFetch(false)
		return "", err
	}
	if resp.Has("error") {
		recordTokenFetch(false)
		return "", newAuthError(fieldText(resp, "error_description"), fieldText(resp, "error"))
	}
	token := resp.String("access_token")
	if token == "" {
		recordTokenFetch(false)
		return "", newAuthError("the token endpoint returned no access token", "missing_access_token")
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	recordTokenFetch(true)
	c.logger.Info("access token acquired")
	return token, nil
}

// send runs one exchange and records its outcome.
func (c *Client) send(ctx context.Context, log *zap.Logger, d Descriptor, p Payload) (Response, error) {
	start := time.Now()
	resp, err := c.exchange(ctx, d, p)
	elapsed := time.Since(start)

	recordExchange(d.Path, err, elapsed)
	if err != nil {
		log.Debug("exchange failed",
			zap.String("path", d.Path),
			zap.Stringer("kind", KindOf(err)),
			zap.Duration("latency", elapsed),
			zap.Error(err),
		)
	} else {
		log.Debug("exchange",
			zap.String("path", d.Path),
			zap.Duration("latency", elapsed),
		)
	}
	return resp, err
}

func (c *Client) exchange(ctx context.Context, d Descriptor, p Payload) (Response, error) {
	body := p.Encode()
	opts := c.owner.RequestOptions(d).
		WithHeader("Content-Type", formContentType).
		WithHeader("Content-Length", strconv.Itoa(len(body)))
	if opts.Method == "" {
		opts.Method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, strings.NewReader(body))
	if err != nil {
		return nil, newTransportError(fmt.Errorf("build request: %w", err))
	}
	req.Header = opts.Header
	req.ContentLength = int64(len(body))
	if opts.Auth != nil {
		req.SetBasicAuth(opts.Auth.Username, opts.Auth.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	// Classify only once the whole body is in.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, newTransportError(err)
	}
	return classify(raw)
}

func fieldText(r Response, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
