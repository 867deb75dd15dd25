package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OAuthClient talks to Strava's authorization service.
type OAuthClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	conf       *oauth2.Config
}

// NewOAuthClient builds a client for {baseURL}/oauth/*. Token exchanges are
// never retried: a refresh token is single-use.
func NewOAuthClient(logger *zap.Logger, httpClient *http.Client, baseURL string, creds AppCredentials) *OAuthClient {
	baseURL = strings.TrimRight(baseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OAuthClient{
		logger:     logger,
		httpClient: httpClient,
		conf: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       []string{authScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   baseURL + "/oauth/authorize",
				TokenURL:  baseURL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// AuthorizationURL returns the page the user must visit to grant access.
func (c *OAuthClient) AuthorizationURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for the first TokenSet.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	tok, err := c.conf.Exchange(c.withClient(ctx), code)
	return c.toTokenSet("oauth.exchange_code", tok, err)
}

// Refresh trades refreshToken for a new TokenSet. All three fields are replaced.
// The caller owns the timing: the token source below is used for exactly one
// exchange and then discarded.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (*TokenSet, error) {
	src := c.conf.TokenSource(c.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	return c.toTokenSet("oauth.refresh", tok, err)
}

func (c *OAuthClient) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *OAuthClient) toTokenSet(op string, tok *oauth2.Token, err error) (*TokenSet, error) {
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		var urlErr *url.Error
		switch {
		case errors.As(err, &retrieveErr):
			status := http.StatusOK
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			c.logger.Warn("strava.oauth.exchange_rejected",
				zap.String("op", op),
				zap.Int("status", status),
				zap.String("body", snippet(retrieveErr.Body)))
			return nil, &AuthError{Status: status, Body: snippet(retrieveErr.Body)}
		case errors.As(err, &urlErr):
			return nil, &TransportError{Op: op, Err: err}
		default:
			// Unparseable or incomplete 2xx body.
			return nil, &AuthError{Status: http.StatusOK, Err: err}
		}
	}

	tokens, perr := tokenSetFromOAuth(tok)
	if perr != nil {
		return nil, &AuthError{Status: http.StatusOK, Err: perr}
	}
	return &tokens, nil
}

// tokenSetFromOAuth reads the three persisted fields from the raw response.
// The refresh token is taken from the body itself: the oauth2 package carries
// the old one forward when a refresh response omits it.
func tokenSetFromOAuth(tok *oauth2.Token) (TokenSet, error) {
	if tok == nil || tok.AccessToken == "" {
		return TokenSet{}, errors.New(`missing field "access_token"`)
	}
	refresh, _ := tok.Extra("refresh_token").(string)
	if refresh == "" {
		return TokenSet{}, errors.New(`missing field "refresh_token"`)
	}
	raw := tok.Extra("expires_at")
	if raw == nil {
		return TokenSet{}, errors.New(`missing field "expires_at"`)
	}

	var secs int64
	switch v := raw.(type) {
	case int64:
		secs = v
	case float64:
		s, err := unixSeconds(v)
		if err != nil {
			return TokenSet{}, err
		}
		secs = s
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return TokenSet{}, fmt.Errorf(`field "expires_at" is not a unix timestamp: %w`, err)
		}
		s, err := unixSeconds(f)
		if err != nil {
			return TokenSet{}, err
		}
		secs = s
	default:
		return TokenSet{}, fmt.Errorf(`field "expires_at" has unexpected type %T`, raw)
	}

	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    time.Unix(secs, 0).UTC(),
	}, nil
}

// CodeFromRedirect extracts the authorization code from a pasted redirect URL.
// The redirect must carry wantState. A bare code is returned unchanged.
func CodeFromRedirect(input, wantState string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("empty redirect input")
	}
	if !strings.Contains(input, "code=") && !strings.Contains(input, "error=") {
		if strings.ContainsAny(input, "/?&= ") {
			return "", fmt.Errorf("no code parameter in %q", input)
		}
		return input, nil
	}

	query := input
	if i := strings.Index(input, "?"); i >= 0 {
		query = input[i+1:]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("parse redirect query: %w", err)
	}
	switch got := values.Get("state"); {
	case got == "":
		return "", errors.New("redirect has no state parameter")
	case got != wantState:
		return "", fmt.Errorf("redirect state %q does not match the issued state", got)
	}
	if errParam := values.Get("error"); errParam != "" {
		return "", fmt.Errorf("authorization denied: %s", errParam)
	}
	code := values.Get("code")
	if code == "" {
		return "", fmt.Errorf("no code parameter in %q", input)
	}
	return code, nil
}
