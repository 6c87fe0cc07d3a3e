package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"formbridge/internal/platform/config"
)

// ErrUnauthorized is the canonical "reauthorize" signal: the provider
// rejected the bearer token with a 401. Every other non-2xx surfaces as an
// *APIError and is treated as transient.
var ErrUnauthorized = errors.New("google: unauthorized")

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google: api error %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Forms read/watch APIs on behalf of one user. It holds
// the bearer token it was constructed with; refresh happens outside, in the
// token guard, before the client is built.
type Client struct {
	cfg   config.GoogleConfig
	token string
	http  *http.Client
}

func NewClient(cfg config.GoogleConfig, accessToken string) *Client {
	return &Client{
		cfg:   cfg,
		token: accessToken,
		http:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) GetUserInfo(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.doJSON(ctx, http.MethodGet, c.cfg.UserInfoServer+"/oauth2/v3/userinfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetForm(ctx context.Context, formID string) (*Form, error) {
	var form Form
	u := fmt.Sprintf("%s/v1/forms/%s", c.cfg.APIServer, url.PathEscape(formID))
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &form); err != nil {
		return nil, err
	}
	return &form, nil
}

// ListResponses fetches responses submitted strictly after the given time.
// The filter is applied server-side to bound the payload.
func (c *Client) ListResponses(ctx context.Context, formID string, after time.Time) ([]FormResponse, error) {
	u := fmt.Sprintf("%s/v1/forms/%s/responses", c.cfg.APIServer, url.PathEscape(formID))
	if !after.IsZero() {
		q := url.Values{}
		q.Set("filter", "timestamp > "+after.UTC().Format(time.RFC3339))
		u += "?" + q.Encode()
	}

	var out struct {
		Responses []FormResponse `json:"responses"`
	}
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Responses, nil
}

func (c *Client) CreateWatch(ctx context.Context, formID string) (*Watch, error) {
	body := map[string]interface{}{
		"watch": map[string]interface{}{
			"target": map[string]interface{}{
				"topic": map[string]interface{}{
					"topicName": c.cfg.PubSubTopic,
				},
			},
			"eventType": "RESPONSES",
		},
	}
	var watch Watch
	u := fmt.Sprintf("%s/v1/forms/%s/watches", c.cfg.APIServer, url.PathEscape(formID))
	if err := c.doJSON(ctx, http.MethodPost, u, body, &watch); err != nil {
		return nil, err
	}
	return &watch, nil
}

func (c *Client) RenewWatch(ctx context.Context, formID, watchID string) (*Watch, error) {
	var watch Watch
	u := fmt.Sprintf("%s/v1/forms/%s/watches/%s:renew", c.cfg.APIServer, url.PathEscape(formID), url.PathEscape(watchID))
	if err := c.doJSON(ctx, http.MethodPost, u, nil, &watch); err != nil {
		return nil, err
	}
	return &watch, nil
}

func (c *Client) DeleteWatch(ctx context.Context, formID, watchID string) error {
	u := fmt.Sprintf("%s/v1/forms/%s/watches/%s", c.cfg.APIServer, url.PathEscape(formID), url.PathEscape(watchID))
	return c.doJSON(ctx, http.MethodDelete, u, nil, nil)
}

func (c *Client) ListWatches(ctx context.Context, formID string) ([]Watch, error) {
	var out struct {
		Watches []Watch `json:"watches"`
	}
	u := fmt.Sprintf("%s/v1/forms/%s/watches", c.cfg.APIServer, url.PathEscape(formID))
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Watches, nil
}

func (c *Client) doJSON(ctx context.Context, method, u string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ParseWatchTime converts the provider's RFC3339 timestamps into unix
// seconds; a zero return means the field was absent or malformed.
func ParseWatchTime(value string) int64 {
	if value == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0
	}
	return t.Unix()
}
