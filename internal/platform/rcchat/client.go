package rcchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const activityName = "Google Forms Add-in"

const logoURL = "https://raw.githubusercontent.com/ringcentral/google-forms-notification-add-in/main/icons/logo.png"

// Client posts adaptive-card messages to RingCentral team webhooks.
type Client struct {
	http *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// PostCard delivers one card attachment to a webhook URI. gone is true only
// when the endpoint answered 2xx with a "Webhook not found" style error body,
// which is the sole signal that the target was deleted on the chat side.
// Transport failures and non-2xx statuses are transient and return err.
func (c *Client) PostCard(ctx context.Context, uri string, attachment interface{}) (gone bool, err error) {
	payload, err := json.Marshal(map[string]interface{}{
		"activity":    activityName,
		"icon":        logoURL,
		"attachments": []interface{}{attachment},
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("rcchat: webhook post returned %d", resp.StatusCode)
	}

	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		if strings.Contains(strings.ToLower(body.Error), "not found") {
			return true, nil
		}
	}
	return false, nil
}

// PostText sends a plain activity message, used for one-off service notices.
func (c *Client) PostText(ctx context.Context, uri, title string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"title":    title,
		"activity": activityName,
		"icon":     logoURL,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("rcchat: webhook post returned %d", resp.StatusCode)
	}
	return nil
}
