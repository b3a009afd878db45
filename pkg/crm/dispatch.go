package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jzx17/crmclient/pkg/auth"
	"github.com/jzx17/crmclient/pkg/retry"
	"github.com/jzx17/crmclient/pkg/transport"
	"github.com/jzx17/crmclient/pkg/types"
	"github.com/jzx17/crmclient/pkg/validate"
)

// RequestIDHeader carries the id shared by every attempt of one operation
const RequestIDHeader = "X-Request-Id"

// RequestLog describes one HTTP attempt
type RequestLog struct {
	RequestID  string
	Operation  string
	Method     string
	Path       string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// RequestLogger receives a record for every HTTP attempt. Errors returned by
// the sink are logged and otherwise ignored.
type RequestLogger interface {
	LogRequest(ctx context.Context, entry RequestLog) error
}

// RequestLoggerFunc adapts a function to RequestLogger
type RequestLoggerFunc func(ctx context.Context, entry RequestLog) error

// LogRequest calls f
func (f RequestLoggerFunc) LogRequest(ctx context.Context, entry RequestLog) error {
	return f(ctx, entry)
}

// CallOption customises a single resource call
type CallOption func(*callOptions)

type callOptions struct {
	validateResponse bool
}

// WithResponseValidation checks the decoded response against its validate tags
func WithResponseValidation() CallOption {
	return func(o *callOptions) {
		o.validateResponse = true
	}
}

// dispatcher sends resource operations: it keeps the token valid, retries
// through the executor and refreshes once when the API rejects the token
type dispatcher struct {
	transport     *transport.Client
	store         *auth.Store
	refresher     *auth.Refresher
	executor      *retry.Executor
	validator     *validate.Validator
	requestLogger RequestLogger
	logger        *slog.Logger
	clock         types.Clock
}

// call dispatches req and decodes the response body into out (may be nil)
func (d *dispatcher) call(ctx context.Context, op string, req transport.Request, out interface{}, opts []CallOption) error {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	resp, err := d.do(ctx, op, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("crm: decode %s response: %w", op, err)
	}
	if co.validateResponse {
		return d.validator.Check(out)
	}
	return nil
}

func (d *dispatcher) do(ctx context.Context, op string, req transport.Request) (*transport.Response, error) {
	requestID := uuid.NewString()

	if err := d.refresher.EnsureValidToken(ctx); err != nil {
		return nil, err
	}

	resp, token, err := d.dispatch(ctx, op, requestID, req)
	if err == nil || !errors.Is(err, types.ErrUnauthorized) {
		return resp, err
	}

	cred, ok := d.store.Load().(auth.OAuthCredential)
	if !ok || !cred.CanRefresh() {
		return nil, err
	}

	d.logger.InfoContext(ctx, "access token rejected, refreshing once",
		"operation", op,
		"request_id", requestID)

	if refreshErr := d.refresher.ForceRefresh(ctx, token); refreshErr != nil {
		return nil, refreshErr
	}

	resp, _, err = d.dispatch(ctx, op, requestID, req)
	return resp, err
}

// dispatch runs req through the retry executor, or once when retries are
// disabled. It also returns the bearer token of the last attempt.
func (d *dispatcher) dispatch(ctx context.Context, op, requestID string, req transport.Request) (*transport.Response, string, error) {
	var (
		token   string
		attempt int
	)

	send := func(ctx context.Context) (*transport.Response, error) {
		attempt++
		token = d.store.Load().BearerToken()

		headers := make(map[string]string, len(req.Headers)+2)
		for k, v := range req.Headers {
			headers[k] = v
		}
		headers["Authorization"] = "Bearer " + token
		headers[RequestIDHeader] = requestID

		r := req
		r.Headers = headers

		start := d.clock.Now()
		resp, err := d.transport.Do(ctx, r)

		entry := RequestLog{
			RequestID:  requestID,
			Operation:  op,
			Method:     req.Method,
			Path:       req.Path,
			Attempt:    attempt,
			StatusCode: types.StatusCode(err),
			Duration:   d.clock.Since(start),
			Err:        err,
		}
		if resp != nil {
			entry.StatusCode = resp.StatusCode
		}
		d.record(ctx, entry)

		return resp, err
	}

	if d.executor == nil {
		resp, err := send(ctx)
		return resp, token, err
	}

	resp, err := retry.ExecuteWithName(d.executor, ctx, op, send)
	return resp, token, err
}

// record hands entry to the request logger; sink failures never reach the caller
func (d *dispatcher) record(ctx context.Context, entry RequestLog) {
	if d.requestLogger == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.WarnContext(ctx, "request logger panicked", "request_id", entry.RequestID, "panic", r)
		}
	}()

	if err := d.requestLogger.LogRequest(ctx, entry); err != nil {
		d.logger.WarnContext(ctx, "request logger failed", "request_id", entry.RequestID, "error", err)
	}
}
