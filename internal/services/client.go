package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/bookclub/internal/shared"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "http://localhost:5000/api"
	defaultUserAgent = "bookclub/0.1"
	defaultTimeout   = 15 * time.Second
)

// Options configures a [Client].
type Options struct {
	BaseURL           string
	Timeout           time.Duration // per request; 0 uses the default
	RequestsPerSecond float64       // 0 disables the limiter
	UserAgent         string
	Tokens            oauth2.TokenSource // source of bearer tokens for authenticated calls
	HTTPClient        *http.Client
	Logger            *log.Logger
}

// Client issues JSON requests against the book-club REST API.
type Client struct {
	rc      *resty.Client
	tokens  oauth2.TokenSource
	limiter *rate.Limiter
	timeout time.Duration
	logger  *log.Logger
}

// Request describes a single API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Auth   bool // attach the session's bearer token; fails fast when signed out
}

// Response represents a raw API response with status and body.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// NewClient creates a [Client] with defaults for any zero option.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", opts.UserAgent).
		SetDisableWarn(true)

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		rc:      rc,
		tokens:  opts.Tokens,
		limiter: limiter,
		timeout: opts.Timeout,
		logger:  opts.Logger,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.rc.BaseURL
}

// Do performs req and returns the response. Non-2xx statuses are returned as [*APIError].
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	r := c.rc.R().SetHeader("X-Request-ID", shared.GenerateID())

	if req.Auth {
		if c.tokens == nil {
			return nil, shared.ErrNotAuthenticated
		}
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		r.SetAuthScheme(tok.Type()).SetAuthToken(tok.AccessToken)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	r.SetContext(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	started := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", req.Path, "error", err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w: %s %s", shared.ErrAPIRequest, shared.ErrTimeout, req.Method, req.Path)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, req.Method, req.Path, err)
	}

	c.logger.Debug("request", "method", req.Method, "path", req.Path, "status", resp.StatusCode(), "elapsed", time.Since(started))

	out := &Response{
		StatusCode: resp.StatusCode(),
		Headers:    resp.Header(),
		Body:       resp.Body(),
	}
	var data any
	if len(out.Body) > 0 && json.Unmarshal(out.Body, &data) == nil {
		out.IsJSON = true
		out.JSONData = data
	}

	if out.StatusCode < 200 || out.StatusCode >= 300 {
		return out, newAPIError(req.Method, req.Path, out)
	}
	return out, nil
}

// Get performs an unauthenticated or authenticated GET and returns the decoded JSON body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, auth bool) (any, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Auth: auth})
	if err != nil {
		return nil, err
	}
	return resp.JSONData, nil
}

// Post sends body as JSON and returns the decoded response.
func (c *Client) Post(ctx context.Context, path string, body any, auth bool) (any, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, Auth: auth})
	if err != nil {
		return nil, err
	}
	return resp.JSONData, nil
}

// Put sends body as JSON and returns the decoded response.
func (c *Client) Put(ctx context.Context, path string, body any, auth bool) (any, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body, Auth: auth})
	if err != nil {
		return nil, err
	}
	return resp.JSONData, nil
}

// Delete issues a DELETE; any 2xx is success.
func (c *Client) Delete(ctx context.Context, path string, auth bool) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path, Auth: auth})
	return err
}

// JoinPath joins a collection path and an id, escaping the id.
func JoinPath(base string, parts ...string) string {
	out := strings.TrimRight(base, "/")
	for _, p := range parts {
		out += "/" + url.PathEscape(p)
	}
	return out
}
