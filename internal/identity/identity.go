// Package identity obtains identity tokens from an OpenID Connect provider
// with the resource-owner password grant.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoIDToken is returned when the token response carries no id_token,
// typically because the openid scope was not granted.
var ErrNoIDToken = errors.New("identity: token response has no id_token")

// ErrMissingCredentials is returned when username or password is empty.
var ErrMissingCredentials = errors.New("identity: username and password are required")

// Config describes the token endpoint and client.
type Config struct {
	IssuerURL    string
	Realm        string
	ClientID     string
	ClientSecret string
	Scopes       []string
	// TokenURL overrides the endpoint derived from IssuerURL and Realm.
	TokenURL   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// TokenEndpoint returns the token URL:
// {issuer}/realms/{realm}/protocol/openid-connect/token unless overridden.
func (c Config) TokenEndpoint() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return strings.TrimRight(c.IssuerURL, "/") + "/realms/" + url.PathEscape(c.Realm) + "/protocol/openid-connect/token"
}

// TokenSet is what a successful grant yields. Only IDToken is presented to
// the tool server.
type TokenSet struct {
	IDToken     string
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

// Issuer performs password grants against one client.
type Issuer struct {
	oauth      oauth2.Config
	httpClient *http.Client
	timeout    time.Duration
}

// NewIssuer creates an Issuer. Client credentials are sent in the form
// body, as public Keycloak clients expect.
func NewIssuer(cfg Config) *Issuer {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid"}
	}
	return &Issuer{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenEndpoint(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: cfg.HTTPClient,
		timeout:    cfg.Timeout,
	}
}

// PasswordGrant exchanges username and password for a TokenSet.
// Provider rejections surface as *oauth2.RetrieveError inside the chain.
func (i *Issuer) PasswordGrant(ctx context.Context, username, password string) (TokenSet, error) {
	if username == "" || password == "" {
		return TokenSet{}, ErrMissingCredentials
	}
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}
	if i.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, i.httpClient)
	}

	tok, err := i.oauth.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return TokenSet{}, fmt.Errorf("identity: password grant for %s: %w", username, err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return TokenSet{}, ErrNoIDToken
	}
	return TokenSet{
		IDToken:     idToken,
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		Expiry:      tok.Expiry,
	}, nil
}

// Describe returns a short message for a grant failure, using the
// provider's error code when there is one.
func Describe(err error) string {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode != "" {
			if re.ErrorDescription != "" {
				return re.ErrorCode + ": " + re.ErrorDescription
			}
			return re.ErrorCode
		}
		if re.Response != nil {
			return "token endpoint returned " + re.Response.Status
		}
	}
	return err.Error()
}
