package auth

import (
	"testing"
	"time"
)

func TestIsExpired(t *testing.T) {
	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		expiresAt time.Time
		buffer    time.Duration
		want      bool
	}{
		{"inside default buffer", now.Add(240 * time.Second), 300 * time.Second, true},
		{"outside smaller buffer", now.Add(240 * time.Second), 180 * time.Second, false},
		{"exactly at buffer edge", now.Add(300 * time.Second), 300 * time.Second, true},
		{"one ms before buffer edge", now.Add(300*time.Second + time.Millisecond), 300 * time.Second, false},
		{"already expired", now.Add(-time.Minute), 0, true},
		{"no buffer, not yet expired", now.Add(time.Second), 0, false},
		{"unknown expiry", time.Time{}, DefaultExpiryBuffer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsExpired(tt.expiresAt, tt.buffer, now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOAuthCredential_WithTokens(t *testing.T) {
	called := false
	cred := OAuthCredential{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example.com/callback",
		OnRefresh:    func(TokenSet) { called = true },
	}
	expiresAt := time.Date(2024, time.March, 2, 12, 0, 0, 0, time.UTC)

	next := cred.withTokens(TokenSet{AccessToken: "new-access", ExpiresAt: expiresAt})

	if next.AccessToken != "new-access" {
		t.Errorf("AccessToken = %q", next.AccessToken)
	}
	if next.RefreshToken != "old-refresh" {
		t.Errorf("RefreshToken = %q, want the previous refresh token kept", next.RefreshToken)
	}
	if !next.ExpiresAt.Equal(expiresAt) {
		t.Errorf("ExpiresAt = %v", next.ExpiresAt)
	}
	if next.ClientID != "client" || next.ClientSecret != "secret" || next.RedirectURI != cred.RedirectURI {
		t.Errorf("client settings not carried over: %+v", next)
	}
	if cred.AccessToken != "old-access" {
		t.Errorf("original credential mutated")
	}
	next.OnRefresh(TokenSet{})
	if !called {
		t.Errorf("OnRefresh not carried over")
	}
}

func TestCredentialKinds(t *testing.T) {
	var cred Credential = APIKeyCredential{Key: "pit-123"}
	if cred.Kind() != KindAPIKey || cred.BearerToken() != "pit-123" {
		t.Errorf("unexpected api key credential: %v %q", cred.Kind(), cred.BearerToken())
	}

	cred = OAuthCredential{AccessToken: "at"}
	if cred.Kind() != KindOAuth || cred.BearerToken() != "at" {
		t.Errorf("unexpected oauth credential: %v %q", cred.Kind(), cred.BearerToken())
	}
	if cred.(OAuthCredential).CanRefresh() {
		t.Errorf("CanRefresh() = true without a refresh token")
	}
}
