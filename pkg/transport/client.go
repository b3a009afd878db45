// Package transport sends CRM API requests over HTTP and maps failures to
// typed transport errors
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	apierrors "github.com/jzx17/crmclient/internal/errors"
	"github.com/jzx17/crmclient/pkg/types"
)

// DefaultRateLimitDelay is used for 429 responses without a usable Retry-After header
const DefaultRateLimitDelay = time.Second

// Request describes a single API call
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    interface{}
}

// Response is a successful API response
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v; an empty body leaves v untouched
func (r *Response) Decode(v interface{}) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Config configures a Client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Headers    map[string]string
	// HTTPClient is copied, never modified
	HTTPClient *http.Client
	Clock      types.Clock
	Logger     *slog.Logger
}

// Client is a thin resty wrapper; it never retries on its own
type Client struct {
	rest  *resty.Client
	clock types.Clock
}

// New creates a transport client
func New(cfg Config) *Client {
	var rc *resty.Client
	if cfg.HTTPClient != nil {
		// resty sets Timeout on the client it wraps; keep the caller's untouched
		hc := *cfg.HTTPClient
		rc = resty.NewWithClient(&hc)
	} else {
		rc = resty.New()
	}

	rc.SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeaders(cfg.Headers).
		SetLogger(newRestyLogger(cfg.Logger))
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		rest:  rc,
		clock: types.OrRealClock(cfg.Clock),
	}
}

// HTTPClient returns the underlying *http.Client
func (c *Client) HTTPClient() *http.Client {
	return c.rest.GetClient()
}

// Do executes req. Non-2xx responses and network failures are returned as
// *types.TransportError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	r := c.rest.R().
		SetContext(ctx).
		SetHeaders(req.Headers)
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		return nil, c.networkError(ctx, req, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode(),
		Headers:    resp.Header(),
		Body:       resp.Body(),
	}
	if out.StatusCode < 200 || out.StatusCode > 299 {
		return nil, c.statusError(req, out)
	}

	return out, nil
}

// networkError classifies failures that produced no response. Cancellation by
// the caller is final; everything else (timeouts, resets, DNS) is retryable.
func (c *Client) networkError(ctx context.Context, req Request, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &types.TransportError{
			Method: req.Method,
			Path:   req.Path,
			Err:    ctxErr,
		}
	}
	return &types.TransportError{
		Method:    req.Method,
		Path:      req.Path,
		Retryable: true,
		Err:       err,
	}
}

func (c *Client) statusError(req Request, resp *Response) error {
	status := resp.StatusCode
	retryAfter := ParseRetryAfter(resp.Headers.Get("Retry-After"), c.clock.Now())
	if status == http.StatusTooManyRequests && retryAfter <= 0 {
		retryAfter = DefaultRateLimitDelay
	}

	return &types.TransportError{
		Method:     req.Method,
		Path:       req.Path,
		StatusCode: status,
		Retryable:  IsRetryableStatus(status),
		RetryAfter: retryAfter,
		Message:    apierrors.Message(resp.Body),
		Body:       resp.Body,
	}
}

// IsRetryableStatus reports whether a response status is worth retrying
func IsRetryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// ParseRetryAfter parses a Retry-After header given in delay-seconds or as an
// HTTP-date. Missing, malformed or past values yield 0.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}

	return 0
}

// restyLogger routes resty's printf-style logging into slog
type restyLogger struct {
	logger *slog.Logger
}

func newRestyLogger(logger *slog.Logger) *restyLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &restyLogger{logger: logger.With("component", "transport")}
}

func (l *restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

func (l *restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...))
}

func (l *restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}
