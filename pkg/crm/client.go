package crm

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/jzx17/crmclient/pkg/auth"
	"github.com/jzx17/crmclient/pkg/cache"
	"github.com/jzx17/crmclient/pkg/retry"
	"github.com/jzx17/crmclient/pkg/transport"
	"github.com/jzx17/crmclient/pkg/types"
	"github.com/jzx17/crmclient/pkg/validate"
)

// Client is a CRM API client. It is safe for concurrent use.
type Client struct {
	cfg        Config
	store      *auth.Store
	refresher  *auth.Refresher
	executor   *retry.Executor
	dispatcher *dispatcher
	logger     *slog.Logger

	Contacts      *ContactsService
	Opportunities *OpportunitiesService
	Users         *UsersService
}

// New creates a client. Defaults are applied to cfg and the result is
// validated; the credential comes from cfg.Auth unless WithCredential is given.
func New(cfg Config, opts ...Option) (*Client, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.prepare(); err != nil {
		return nil, err
	}

	cred := o.credential
	if cred == nil {
		var err error
		if cred, err = cfg.Credential(); err != nil {
			return nil, err
		}
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "crm")
	clock := types.OrRealClock(o.clock)

	httpTransport := transport.New(transport.Config{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		UserAgent:  cfg.UserAgent,
		Headers:    map[string]string{"Version": cfg.APIVersion},
		HTTPClient: o.httpClient,
		Clock:      clock,
		Logger:     logger,
	})

	exchanger := o.exchanger
	if exchanger == nil {
		exchanger = auth.NewOAuth2Exchanger(cfg.TokenURL, httpTransport.HTTPClient(), clock)
	}

	store := auth.NewStore(cred)
	refresher := auth.NewRefresher(store, exchanger,
		auth.WithExpiryBuffer(cfg.ExpiryBuffer),
		auth.WithClock(clock),
		auth.WithLogger(logger),
		auth.WithOnRefresh(o.onRefresh),
	)

	var executor *retry.Executor
	if !o.noRetry && (o.retryPolicy != nil || !cfg.Retry.Disabled) {
		policy := cfg.RetryPolicy()
		if o.retryPolicy != nil {
			policy = *o.retryPolicy
		}
		executor = retry.NewExecutor(policy,
			retry.WithClock(clock),
			retry.WithEventHandler(retry.NewLogEventHandler(logger)),
		)
	}

	c := &Client{
		cfg:       cfg,
		store:     store,
		refresher: refresher,
		executor:  executor,
		logger:    logger,
		dispatcher: &dispatcher{
			transport:     httpTransport,
			store:         store,
			refresher:     refresher,
			executor:      executor,
			validator:     validate.New(),
			requestLogger: o.requestLogger,
			logger:        logger,
			clock:         clock,
		},
	}
	c.Contacts = &ContactsService{client: c}
	c.Opportunities = &OpportunitiesService{
		client:    c,
		pipelines: cache.NewTTL[string, *PipelineMap](cfg.PipelineCacheTTL, clock),
	}
	c.Users = &UsersService{client: c}

	return c, nil
}

// Config returns the effective configuration
func (c *Client) Config() Config {
	return c.cfg
}

// Auth returns the active credential
func (c *Client) Auth() auth.Credential {
	return c.store.Load()
}

// UpdateAuth atomically replaces the active credential. A nil credential is
// ignored. The WithOnRefresh callback keeps applying to OAuth credentials
// set here.
func (c *Client) UpdateAuth(cred auth.Credential) {
	if !c.store.Update(cred) {
		c.logger.Warn("ignoring nil credential update")
		return
	}
	c.logger.Info("credential updated", "kind", cred.Kind())
}

// EnsureValidToken refreshes the OAuth access token if it is expired or about to expire
func (c *Client) EnsureValidToken(ctx context.Context) error {
	return c.refresher.EnsureValidToken(ctx)
}

// RetryStats returns the retry executor statistics; zero when retries are disabled
func (c *Client) RetryStats() retry.Stats {
	if c.executor == nil {
		return retry.Stats{}
	}
	return c.executor.GetStats()
}

// locationID resolves a location-scoped call's location
func (c *Client) locationID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if c.cfg.LocationID != "" {
		return c.cfg.LocationID, nil
	}
	return "", types.NewConfigurationError("locationId", types.ErrMissingLocation)
}

// call validates input (when not nil) and dispatches the request
func (c *Client) call(ctx context.Context, op string, req transport.Request, input, out interface{}, opts []CallOption) error {
	if input != nil {
		if err := c.dispatcher.validator.Check(input); err != nil {
			return err
		}
	}
	return c.dispatcher.call(ctx, op, req, out, opts)
}

// escape escapes a path segment
func escape(segment string) string {
	return url.PathEscape(segment)
}
