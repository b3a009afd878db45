package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jzx17/crmclient/pkg/types"
	"golang.org/x/oauth2"
)

// DefaultTokenURL is the CRM OAuth token endpoint
const DefaultTokenURL = "https://services.leadconnectorhq.com/oauth/token"

// RefreshRequest carries what a refresh_token grant needs
type RefreshRequest struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
}

// TokenExchanger trades a refresh token for a new token pair
type TokenExchanger interface {
	Exchange(ctx context.Context, req RefreshRequest) (TokenSet, error)
}

// ExchangerFunc adapts a function to TokenExchanger
type ExchangerFunc func(ctx context.Context, req RefreshRequest) (TokenSet, error)

// Exchange calls f
func (f ExchangerFunc) Exchange(ctx context.Context, req RefreshRequest) (TokenSet, error) {
	return f(ctx, req)
}

// OAuth2Exchanger performs the refresh_token grant against a token endpoint.
// Client id and secret are sent form-encoded in the request body.
type OAuth2Exchanger struct {
	tokenURL   string
	httpClient *http.Client
	clock      types.Clock
}

// NewOAuth2Exchanger creates an exchanger for tokenURL (DefaultTokenURL when
// empty). A nil httpClient uses http.DefaultClient, a nil clock real time.
func NewOAuth2Exchanger(tokenURL string, httpClient *http.Client, clock types.Clock) *OAuth2Exchanger {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &OAuth2Exchanger{
		tokenURL:   tokenURL,
		httpClient: httpClient,
		clock:      types.OrRealClock(clock),
	}
}

// Exchange implements TokenExchanger
func (e *OAuth2Exchanger) Exchange(ctx context.Context, req RefreshRequest) (TokenSet, error) {
	cfg := &oauth2.Config{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURL:  req.RedirectURI,
		Endpoint: oauth2.Endpoint{
			TokenURL:  e.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}

	issuedAt := e.clock.Now()
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: req.RefreshToken}).Token()
	if err != nil {
		return TokenSet{}, refreshError(err)
	}

	tokens := TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scope:        extraString(tok.Extra("scope")),
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = req.RefreshToken
	}

	// expires_in is resolved against our clock rather than the library's
	expiresIn := tok.ExpiresIn
	if expiresIn == 0 {
		expiresIn = extraInt64(tok.Extra("expires_in"))
	}
	if expiresIn > 0 {
		tokens.ExpiresAt = issuedAt.Add(time.Duration(expiresIn) * time.Second)
	} else if !tok.Expiry.IsZero() {
		tokens.ExpiresAt = tok.Expiry
	}

	return tokens, nil
}

func refreshError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		refreshErr := &types.RefreshError{Body: retrieveErr.Body, Err: err}
		if retrieveErr.Response != nil {
			refreshErr.StatusCode = retrieveErr.Response.StatusCode
		}
		return refreshErr
	}
	return &types.RefreshError{Err: err}
}

func extraString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func extraInt64(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err == nil {
			return n
		}
	}
	return 0
}
