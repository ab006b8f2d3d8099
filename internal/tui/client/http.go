package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/ws"
)

// HTTPClient makes REST calls to the coordinator's status server.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8080").
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetSession fetches /api/session.
func (c *HTTPClient) GetSession() (*ws.SnapshotPayload, error) {
	var p ws.SnapshotPayload
	if err := c.get("/api/session", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetHost fetches /api/host.
func (c *HTTPClient) GetHost() (*ws.HostInfo, error) {
	var h ws.HostInfo
	if err := c.get("/api/host", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Press sends POST /api/nodes/{id}/press.
func (c *HTTPClient) Press(node string, side contest.Side) error {
	target := fmt.Sprintf("%s/api/nodes/%s/press?side=%s", c.baseURL, url.PathEscape(node), side)
	req, err := http.NewRequest(http.MethodPost, target, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("press failed (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *HTTPClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
