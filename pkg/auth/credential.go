// Package auth holds the client credential and keeps OAuth access tokens fresh.
//
// A client owns exactly one active Credential, kept in a Store. API-key
// credentials are static. OAuth credentials are replaced wholesale whenever
// the Refresher exchanges the refresh token for a new pair; they are never
// mutated in place.
package auth

import (
	"time"
)

// Kind identifies the credential variant
type Kind string

const (
	KindAPIKey Kind = "api-key"
	KindOAuth  Kind = "oauth"
)

// Credential is either an APIKeyCredential or an OAuthCredential
type Credential interface {
	// Kind reports the credential variant
	Kind() Kind

	// BearerToken returns the value sent in the Authorization header
	BearerToken() string

	sealed()
}

// APIKeyCredential is a static private integration key
type APIKeyCredential struct {
	Key string
}

func (APIKeyCredential) Kind() Kind { return KindAPIKey }

func (c APIKeyCredential) BearerToken() string { return c.Key }

func (APIKeyCredential) sealed() {}

// TokenSet is the result of a token exchange
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is zero when the endpoint did not report a lifetime
	ExpiresAt time.Time
	TokenType string
	Scope     string
}

// OAuthCredential is an OAuth2 access token with the material needed to refresh it
type OAuthCredential struct {
	AccessToken  string
	RefreshToken string

	// ExpiresAt is zero when the expiry is unknown; such tokens are never
	// considered expired
	ExpiresAt time.Time

	ClientID     string
	ClientSecret string
	RedirectURI  string

	// OnRefresh is called with the new tokens after each successful refresh
	OnRefresh func(TokenSet)
}

func (OAuthCredential) Kind() Kind { return KindOAuth }

func (c OAuthCredential) BearerToken() string { return c.AccessToken }

func (OAuthCredential) sealed() {}

// CanRefresh reports whether a refresh token is available
func (c OAuthCredential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// Expired reports whether the access token is expired, or will be within buffer
func (c OAuthCredential) Expired(buffer time.Duration, now time.Time) bool {
	return IsExpired(c.ExpiresAt, buffer, now)
}

// withTokens returns a copy carrying the exchanged tokens. Client settings
// and the callback are kept; an empty refresh token keeps the old one.
func (c OAuthCredential) withTokens(tokens TokenSet) OAuthCredential {
	next := c
	next.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		next.RefreshToken = tokens.RefreshToken
	}
	next.ExpiresAt = tokens.ExpiresAt
	return next
}
