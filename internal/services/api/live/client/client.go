// Package client reaches a notification hub running in another process
// through the internal notify protocol
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"swiftconcur/internal/services/api/live/domain"
	livehttp "swiftconcur/internal/services/api/live/http"
)

// Client implements domain.NotifyPort over HTTP
type Client struct {
	base  string
	token string
	hc    *http.Client
}

// New returns a client for the hub at base; timeout bounds each call
func New(base, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		hc:    &http.Client{Timeout: timeout},
	}
}

// Notify posts ev to /internal/repos/{repoID}/notify
func (c *Client) Notify(ctx context.Context, repoID string, ev domain.Event) (int, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return 0, err
	}
	u := c.base + "/internal/repos/" + url.PathEscape(repoID) + "/notify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(livehttp.InternalTokenHeader, c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("notify %s: %s: %s", repoID, resp.Status, bytes.TrimSpace(msg))
	}
	var out domain.NotifyResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("notify %s: decode: %w", repoID, err)
	}
	return out.ConnectionsNotified, nil
}
