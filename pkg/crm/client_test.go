package crm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jzx17/crmclient/internal/testutils"
	"github.com/jzx17/crmclient/pkg/auth"
	"github.com/jzx17/crmclient/pkg/retry"
	"github.com/jzx17/crmclient/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetry keeps retry waits short enough for real-clock tests
var fastRetry = retry.Policy{
	MaxRetries:      2,
	InitialDelay:    time.Millisecond,
	MaxDelay:        2 * time.Millisecond,
	ExponentialBase: 2,
}

func testConfig(srv *testutils.Server) Config {
	return Config{
		BaseURL:    srv.URL,
		TokenURL:   srv.URL + "/oauth/token",
		LocationID: "loc-1",
	}
}

func oauthCredential(expiresAt time.Time) auth.OAuthCredential {
	return auth.OAuthCredential{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    expiresAt,
		ClientID:     "client",
		ClientSecret: "secret",
	}
}

func handleTokenEndpoint(srv *testutils.Server) {
	srv.HandleJSON("POST /oauth/token", http.StatusOK, map[string]any{
		"access_token":  "new-access",
		"refresh_token": "new-refresh",
		"expires_in":    86399,
		"token_type":    "Bearer",
	})
}

func contactJSON(id string) map[string]any {
	return map[string]any{"contact": map[string]any{"id": id, "email": "ada@example.com"}}
}

func TestNew_RequiresCredential(t *testing.T) {
	_, err := New(Config{})

	var cfgErr *types.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, types.ErrMissingCredential)
}

func TestNew_AppliesDefaults(t *testing.T) {
	client, err := New(Config{Auth: AuthConfig{APIKey: "pit"}})
	require.NoError(t, err)

	cfg := client.Config()
	assert.Equal(t, "https://services.leadconnectorhq.com", cfg.BaseURL)
	assert.Equal(t, "2021-07-28", cfg.APIVersion)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.ExpiryBuffer)
	assert.Equal(t, time.Hour, cfg.PipelineCacheTTL)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, auth.APIKeyCredential{Key: "pit"}, client.Auth())
}

func TestClient_SendsHeaders(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleJSON("GET /contacts/c-1", http.StatusOK, contactJSON("c-1"))

	client, err := New(testConfig(srv), WithCredential(auth.APIKeyCredential{Key: "pit-123"}))
	require.NoError(t, err)

	contact, err := client.Contacts.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", contact.ID)

	req := srv.LastRequest()
	assert.Equal(t, "Bearer pit-123", req.Header.Get("Authorization"))
	assert.Equal(t, "2021-07-28", req.Header.Get("Version"))
	assert.NotEmpty(t, req.Header.Get(RequestIDHeader))
}

func TestClient_RefreshesExpiredTokenBeforeDispatch(t *testing.T) {
	srv := testutils.NewServer(t)
	handleTokenEndpoint(srv)
	srv.HandleJSON("GET /contacts/c-1", http.StatusOK, contactJSON("c-1"))

	var refreshed []auth.TokenSet
	clock := testutils.NewClockWrapper(testutils.NewMockClock(t))
	client, err := New(testConfig(srv),
		WithCredential(oauthCredential(testutils.Epoch.Add(4*time.Minute))),
		WithClock(clock),
		WithOnRefresh(func(tokens auth.TokenSet) { refreshed = append(refreshed, tokens) }),
	)
	require.NoError(t, err)

	_, err = client.Contacts.Get(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, 1, srv.Hits("POST /oauth/token"))
	assert.Equal(t, "Bearer new-access", srv.LastRequest().Header.Get("Authorization"))
	require.Len(t, refreshed, 1)
	assert.Equal(t, "new-refresh", refreshed[0].RefreshToken)
	assert.Equal(t, testutils.Epoch.Add(86399*time.Second), refreshed[0].ExpiresAt)

	active := client.Auth().(auth.OAuthCredential)
	assert.Equal(t, "new-access", active.AccessToken)
	assert.Equal(t, "client", active.ClientID)
}

func TestClient_RefreshesOnceOn401(t *testing.T) {
	srv := testutils.NewServer(t)
	handleTokenEndpoint(srv)
	srv.Handle("GET /contacts/c-1", func(w http.ResponseWriter, r *http.Request, call int) {
		if call == 1 {
			testutils.WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid JWT"})
			return
		}
		testutils.WriteJSON(w, http.StatusOK, contactJSON("c-1"))
	})

	client, err := New(testConfig(srv), WithCredential(oauthCredential(time.Time{})))
	require.NoError(t, err)

	contact, err := client.Contacts.Get(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", contact.ID)

	assert.Equal(t, 1, srv.Hits("POST /oauth/token"))
	assert.Equal(t, 2, srv.Hits("GET /contacts/c-1"))

	requests := srv.Requests()
	var ids []string
	var tokens []string
	for _, r := range requests {
		if r.Path == "/contacts/c-1" {
			ids = append(ids, r.Header.Get(RequestIDHeader))
			tokens = append(tokens, r.Header.Get("Authorization"))
		}
	}
	assert.Equal(t, []string{"Bearer old-access", "Bearer new-access"}, tokens)
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
}

func TestClient_SecondUnauthorizedSurfaces(t *testing.T) {
	srv := testutils.NewServer(t)
	handleTokenEndpoint(srv)
	srv.HandleJSON("GET /contacts/c-1", http.StatusUnauthorized, map[string]string{"message": "Invalid JWT"})

	client, err := New(testConfig(srv), WithCredential(oauthCredential(time.Time{})))
	require.NoError(t, err)

	_, err = client.Contacts.Get(context.Background(), "c-1")

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnauthorized)
	assert.Equal(t, http.StatusUnauthorized, types.StatusCode(err))
	assert.Equal(t, 1, srv.Hits("POST /oauth/token"))
	assert.Equal(t, 2, srv.Hits("GET /contacts/c-1"))
}

func TestClient_NoRefreshOn401(t *testing.T) {
	tests := []struct {
		name string
		cred auth.Credential
	}{
		{"api key", auth.APIKeyCredential{Key: "pit"}},
		{"oauth without refresh token", auth.OAuthCredential{AccessToken: "at"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutils.NewServer(t)
			handleTokenEndpoint(srv)
			srv.HandleJSON("GET /users/u-1", http.StatusUnauthorized, map[string]string{"message": "nope"})

			client, err := New(testConfig(srv), WithCredential(tt.cred))
			require.NoError(t, err)

			_, err = client.Users.Get(context.Background(), "u-1")

			assert.ErrorIs(t, err, types.ErrUnauthorized)
			assert.Equal(t, 0, srv.Hits("POST /oauth/token"))
			assert.Equal(t, 1, srv.Hits("GET /users/u-1"))
		})
	}
}

func TestClient_RefreshFailureOn401(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleJSON("POST /oauth/token", http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
	srv.HandleJSON("GET /contacts/c-1", http.StatusUnauthorized, map[string]string{"message": "Invalid JWT"})

	client, err := New(testConfig(srv), WithCredential(oauthCredential(time.Time{})))
	require.NoError(t, err)

	_, err = client.Contacts.Get(context.Background(), "c-1")

	var refreshErr *types.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, http.StatusBadRequest, refreshErr.StatusCode)
	assert.Equal(t, 1, srv.Hits("GET /contacts/c-1"))
	assert.Equal(t, "old-access", client.Auth().BearerToken())
}

func TestClient_ConcurrentCallsShareRefresh(t *testing.T) {
	srv := testutils.NewServer(t)
	handleTokenEndpoint(srv)
	srv.HandleJSON("GET /contacts/c-1", http.StatusOK, contactJSON("c-1"))

	clock := testutils.NewClockWrapper(testutils.NewMockClock(t))
	client, err := New(testConfig(srv),
		WithCredential(oauthCredential(testutils.Epoch)),
		WithClock(clock),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Contacts.Get(context.Background(), "c-1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, srv.Hits("POST /oauth/token"))
	assert.Equal(t, 5, srv.Hits("GET /contacts/c-1"))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.Handle("GET /contacts/c-1", func(w http.ResponseWriter, r *http.Request, call int) {
		if call < 3 {
			testutils.WriteJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream"})
			return
		}
		testutils.WriteJSON(w, http.StatusOK, contactJSON("c-1"))
	})

	var (
		mu      sync.Mutex
		entries []RequestLog
	)
	sink := RequestLoggerFunc(func(ctx context.Context, entry RequestLog) error {
		mu.Lock()
		defer mu.Unlock()
		entries = append(entries, entry)
		return errors.New("audit store unavailable")
	})

	client, err := New(testConfig(srv),
		WithCredential(auth.APIKeyCredential{Key: "pit"}),
		WithRetryPolicy(fastRetry),
		WithRequestLogger(sink),
	)
	require.NoError(t, err)

	contact, err := client.Contacts.Get(context.Background(), "c-1")
	require.NoError(t, err, "request logger errors must not fail the call")
	assert.Equal(t, "c-1", contact.ID)
	assert.Equal(t, 3, srv.Hits("GET /contacts/c-1"))

	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Attempt)
		assert.Equal(t, "contacts.get", entry.Operation)
		assert.Equal(t, entries[0].RequestID, entry.RequestID)
	}
	assert.Equal(t, http.StatusBadGateway, entries[0].StatusCode)
	assert.Error(t, entries[0].Err)
	assert.Equal(t, http.StatusOK, entries[2].StatusCode)

	stats := client.RetryStats()
	assert.Equal(t, int64(3), stats.TotalAttempts)
	assert.Equal(t, int64(1), stats.TotalSuccesses)
}

func TestClient_RetryBudgetExhausted(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleJSON("GET /contacts/c-1", http.StatusServiceUnavailable, map[string]string{"message": "down"})

	client, err := New(testConfig(srv),
		WithCredential(auth.APIKeyCredential{Key: "pit"}),
		WithRetryPolicy(fastRetry),
	)
	require.NoError(t, err)

	_, err = client.Contacts.Get(context.Background(), "c-1")

	assert.ErrorIs(t, err, types.ErrServer)
	assert.True(t, types.IsRetryable(err))
	assert.Equal(t, 3, srv.Hits("GET /contacts/c-1"))
}

func TestClient_WithoutRetry(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleJSON("GET /contacts/c-1", http.StatusInternalServerError, map[string]string{"message": "boom"})

	client, err := New(testConfig(srv),
		WithCredential(auth.APIKeyCredential{Key: "pit"}),
		WithoutRetry(),
	)
	require.NoError(t, err)

	_, err = client.Contacts.Get(context.Background(), "c-1")

	assert.ErrorIs(t, err, types.ErrServer)
	assert.Equal(t, 1, srv.Hits("GET /contacts/c-1"))
	assert.Equal(t, retry.Stats{}, client.RetryStats())
}

func TestClient_PanickingRequestLogger(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleJSON("GET /contacts/c-1", http.StatusOK, contactJSON("c-1"))

	client, err := New(testConfig(srv),
		WithCredential(auth.APIKeyCredential{Key: "pit"}),
		WithRequestLogger(RequestLoggerFunc(func(context.Context, RequestLog) error {
			panic("sink exploded")
		})),
	)
	require.NoError(t, err)

	_, err = client.Contacts.Get(context.Background(), "c-1")
	assert.NoError(t, err)
}

func TestClient_UpdateAuth(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleJSON("GET /contacts/c-1", http.StatusOK, contactJSON("c-1"))

	client, err := New(testConfig(srv), WithCredential(auth.APIKeyCredential{Key: "first"}))
	require.NoError(t, err)

	client.UpdateAuth(auth.APIKeyCredential{Key: "second"})
	_, err = client.Contacts.Get(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer second", srv.LastRequest().Header.Get("Authorization"))
}

func TestClient_UpdateAuthKeepsRefreshCallback(t *testing.T) {
	srv := testutils.NewServer(t)
	handleTokenEndpoint(srv)

	var refreshed []auth.TokenSet
	clock := testutils.NewClockWrapper(testutils.NewMockClock(t))
	client, err := New(testConfig(srv),
		WithCredential(auth.APIKeyCredential{Key: "pit"}),
		WithClock(clock),
		WithOnRefresh(func(tokens auth.TokenSet) { refreshed = append(refreshed, tokens) }),
	)
	require.NoError(t, err)

	client.UpdateAuth(oauthCredential(testutils.Epoch.Add(time.Minute)))
	require.NoError(t, client.EnsureValidToken(context.Background()))

	assert.Equal(t, 1, srv.Hits("POST /oauth/token"))
	require.Len(t, refreshed, 1)
	assert.Equal(t, "new-refresh", refreshed[0].RefreshToken)
}

func TestClient_UpdateAuthIgnoresNil(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleJSON("GET /contacts/c-1", http.StatusOK, contactJSON("c-1"))

	client, err := New(testConfig(srv), WithCredential(auth.APIKeyCredential{Key: "first"}))
	require.NoError(t, err)

	assert.NotPanics(t, func() { client.UpdateAuth(nil) })
	_, err = client.Contacts.Get(context.Background(), "c-1")
	require.NoError(t, err)

	assert.Equal(t, auth.APIKeyCredential{Key: "first"}, client.Auth())
	assert.Equal(t, "Bearer first", srv.LastRequest().Header.Get("Authorization"))
}

func TestClient_EnsureValidToken(t *testing.T) {
	srv := testutils.NewServer(t)
	handleTokenEndpoint(srv)

	clock := testutils.NewClockWrapper(testutils.NewMockClock(t))
	client, err := New(testConfig(srv),
		WithCredential(oauthCredential(testutils.Epoch.Add(time.Minute))),
		WithClock(clock),
	)
	require.NoError(t, err)

	require.NoError(t, client.EnsureValidToken(context.Background()))
	require.NoError(t, client.EnsureValidToken(context.Background()))

	assert.Equal(t, 1, srv.Hits("POST /oauth/token"))
	assert.Equal(t, "new-access", client.Auth().BearerToken())
}
