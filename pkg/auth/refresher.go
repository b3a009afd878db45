package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jzx17/crmclient/pkg/types"
	"golang.org/x/sync/singleflight"
)

// Single flight keys. A forced refresh never joins an expiry-driven flight,
// which may find the token fresh and skip the exchange.
const (
	refreshKey      = "oauth-refresh"
	forceRefreshKey = "oauth-refresh-forced"
)

// Refresher keeps the OAuth credential in a Store valid. At most one token
// exchange is in flight at a time; concurrent callers share its outcome.
type Refresher struct {
	store     *Store
	exchanger TokenExchanger
	buffer    time.Duration
	clock     types.Clock
	logger    *slog.Logger
	onRefresh func(TokenSet)
	group     singleflight.Group

	// mu serialises exchanges across both flights
	mu sync.Mutex
}

// RefresherOption configures a Refresher
type RefresherOption func(*Refresher)

// WithExpiryBuffer sets how early a token is considered expired
func WithExpiryBuffer(buffer time.Duration) RefresherOption {
	return func(r *Refresher) {
		if buffer >= 0 {
			r.buffer = buffer
		}
	}
}

// WithClock sets the clock used for expiry checks
func WithClock(clock types.Clock) RefresherOption {
	return func(r *Refresher) {
		r.clock = types.OrRealClock(clock)
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOnRefresh sets a callback run after every successful refresh, in
// addition to the OnRefresh of the refreshed credential. It survives
// Store.Update.
func WithOnRefresh(fn func(TokenSet)) RefresherOption {
	return func(r *Refresher) {
		r.onRefresh = fn
	}
}

// NewRefresher creates a refresher for the credential held by store
func NewRefresher(store *Store, exchanger TokenExchanger, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		store:     store,
		exchanger: exchanger,
		buffer:    DefaultExpiryBuffer,
		clock:     types.NewRealClock(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureValidToken returns once the active credential is usable. It is a
// no-op for API keys and for OAuth tokens outside the expiry buffer;
// otherwise it joins or starts the refresh.
func (r *Refresher) EnsureValidToken(ctx context.Context) error {
	cred, ok := r.store.Load().(OAuthCredential)
	if !ok || !cred.Expired(r.buffer, r.clock.Now()) {
		return nil
	}
	return r.run(ctx, refreshKey, func() error { return r.refresh(ctx, false, "") })
}

// ForceRefresh refreshes regardless of expiry. When stale is not empty and
// the active access token already differs from it, another caller has
// refreshed in the meantime and nothing is done.
func (r *Refresher) ForceRefresh(ctx context.Context, stale string) error {
	if _, ok := r.store.Load().(OAuthCredential); !ok {
		return nil
	}
	return r.run(ctx, forceRefreshKey, func() error { return r.refresh(ctx, true, stale) })
}

// run executes fn in the shared flight. The flight is detached from the
// caller's cancellation so that one impatient caller cannot fail the others.
func (r *Refresher) run(ctx context.Context, key string, fn func() error) error {
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return nil, fn()
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (r *Refresher) refresh(ctx context.Context, force bool, stale string) error {
	ctx = context.WithoutCancel(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	current, gen := r.store.snapshot()
	cred, ok := current.(OAuthCredential)
	if !ok {
		return nil
	}
	// a flight that finished just before this one may already have done the work
	if !force && !cred.Expired(r.buffer, r.clock.Now()) {
		return nil
	}
	if force && stale != "" && cred.AccessToken != stale {
		return nil
	}

	if cred.RefreshToken == "" {
		return types.NewConfigurationError("refreshToken", types.ErrMissingRefreshToken)
	}
	if cred.ClientID == "" || cred.ClientSecret == "" {
		return types.NewConfigurationError("clientId", types.ErrMissingClientConfig)
	}

	r.logger.InfoContext(ctx, "refreshing access token", "forced", force, "expires_at", cred.ExpiresAt)

	tokens, err := r.exchanger.Exchange(ctx, RefreshRequest{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RedirectURI:  cred.RedirectURI,
		RefreshToken: cred.RefreshToken,
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "access token refresh failed", "error", err)
		return err
	}

	next := cred.withTokens(tokens)
	if !r.store.replace(gen, next) {
		r.logger.WarnContext(ctx, "credential replaced during refresh, discarding refreshed tokens")
		return nil
	}

	r.logger.InfoContext(ctx, "access token refreshed", "expires_at", next.ExpiresAt)

	refreshed := TokenSet{
		AccessToken:  next.AccessToken,
		RefreshToken: next.RefreshToken,
		ExpiresAt:    next.ExpiresAt,
		TokenType:    tokens.TokenType,
		Scope:        tokens.Scope,
	}
	if next.OnRefresh != nil {
		next.OnRefresh(refreshed)
	}
	if r.onRefresh != nil {
		r.onRefresh(refreshed)
	}

	return nil
}
