package oidc

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Client wraps OAuth2 client functionality for the OIDC login flow
type Client struct {
	config *oauth2.Config
	issuer string
}

// NewClient creates a new OAuth2 client for the configured issuer
func NewClient(issuer, clientID, clientSecret, redirectURI string) *Client {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  issuer + "/oauth2/authorize",
			TokenURL: issuer + "/oauth2/token",
		},
	}

	return &Client{config: config, issuer: issuer}
}

// ExchangeCode exchanges an authorization code for tokens
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return token, nil
}

// AuthCodeURL returns the authorization URL for the given state
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// LoginConfig is the OIDC configuration handed to the frontend
type LoginConfig struct {
	Issuer      string   `json:"issuer"`
	ClientID    string   `json:"client_id"`
	RedirectURI string   `json:"redirect_uri"`
	AuthURL     string   `json:"auth_url"`
	Scopes      []string `json:"scopes"`
}

// LoginConfig returns the login configuration for frontend-driven auth.
// state is embedded into the returned auth URL.
func (c *Client) LoginConfig(state string) LoginConfig {
	return LoginConfig{
		Issuer:      c.issuer,
		ClientID:    c.config.ClientID,
		RedirectURI: c.config.RedirectURL,
		AuthURL:     c.AuthCodeURL(state),
		Scopes:      c.config.Scopes,
	}
}
