package google

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"encoding/json"

	"formbridge/internal/platform/config"
)

// OAuthClient handles the authorization-code and refresh-token exchanges.
// Unlike Client it is user-independent and safe to share.
type OAuthClient struct {
	cfg         config.GoogleConfig
	redirectURI string
	http        *http.Client
}

func NewOAuthClient(cfg config.GoogleConfig, redirectURI string) *OAuthClient {
	return &OAuthClient{
		cfg:         cfg,
		redirectURI: redirectURI,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthCodeURL builds the consent-page URL. Offline access is requested so a
// refresh token comes back with the first grant.
func (c *OAuthClient) AuthCodeURL() string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.cfg.Scopes, " "))
	q.Set("access_type", "offline")
	q.Set("include_granted_scopes", "true")
	return c.cfg.AuthorizationURI + "?" + q.Encode()
}

// ExchangeCode extracts the authorization code from the callback URI the
// client-side flow captured and trades it for tokens.
func (c *OAuthClient) ExchangeCode(ctx context.Context, callbackURI string) (*Token, error) {
	parsed, err := url.Parse(callbackURI)
	if err != nil {
		return nil, err
	}
	code := parsed.Query().Get("code")
	if code == "" {
		return nil, errors.New("google: callback uri has no code")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("redirect_uri", c.redirectURI)
	return c.tokenRequest(ctx, form)
}

func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	return c.tokenRequest(ctx, form)
}

// RevokeToken invalidates the grant upstream. Failures are the caller's
// problem to ignore; local logout does not depend on this succeeding.
func (c *OAuthClient) RevokeToken(ctx context.Context, token string) error {
	q := url.Values{}
	q.Set("token", token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RevokeURI+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *OAuthClient) tokenRequest(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// The token endpoint reports a revoked or expired grant as 400/401 with
	// an invalid_grant body. Both mean the same thing here: reauthorize.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("google: token response missing access_token")
	}
	return &token, nil
}
