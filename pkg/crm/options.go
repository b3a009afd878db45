package crm

import (
	"log/slog"
	"net/http"

	"github.com/jzx17/crmclient/pkg/auth"
	"github.com/jzx17/crmclient/pkg/retry"
	"github.com/jzx17/crmclient/pkg/types"
)

// options collects what New can be customised with
type options struct {
	logger        *slog.Logger
	clock         types.Clock
	httpClient    *http.Client
	retryPolicy   *retry.Policy
	noRetry       bool
	requestLogger RequestLogger
	exchanger     auth.TokenExchanger
	onRefresh     func(auth.TokenSet)
	credential    auth.Credential
}

// Option configures a Client
type Option func(*options)

// WithLogger sets the structured logger, slog.Default() otherwise
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock used for token expiry, retry waits and the pipeline cache
func WithClock(clock types.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithHTTPClient sets the HTTP client used for API and token requests. The
// client is copied before Config.Timeout is applied, so client is not modified.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithRetryPolicy replaces the policy built from Config.Retry
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *options) {
		o.retryPolicy = &policy
		o.noRetry = false
	}
}

// WithoutRetry sends every request exactly once
func WithoutRetry() Option {
	return func(o *options) {
		o.noRetry = true
	}
}

// WithRequestLogger registers a sink that receives one record per HTTP attempt
func WithRequestLogger(sink RequestLogger) Option {
	return func(o *options) {
		o.requestLogger = sink
	}
}

// WithTokenExchanger replaces the OAuth2 token endpoint exchange
func WithTokenExchanger(exchanger auth.TokenExchanger) Option {
	return func(o *options) {
		o.exchanger = exchanger
	}
}

// WithOnRefresh sets the callback receiving refreshed OAuth tokens, typically
// to persist them
func WithOnRefresh(fn func(auth.TokenSet)) Option {
	return func(o *options) {
		o.onRefresh = fn
	}
}

// WithCredential uses cred instead of the credential described by Config.Auth
func WithCredential(cred auth.Credential) Option {
	return func(o *options) {
		o.credential = cred
	}
}
