// Package statusapi fetches dataset status snapshots from the DAC backend
// status API over HTTP.
package statusapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mwengren/glider-dac-status/internal/dacstatus"
)

// ServiceStats holds lightweight reachability data for the status API.
type ServiceStats struct {
	PingMS     int64  `json:"ping_ms"`
	HTTPStatus int    `json:"http_status"`
	Endpoint   string `json:"endpoint"`
}

// Client fetches the deployment status collection from the backend API.
type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

func (c *Client) Name() string { return "status_api" }

// FetchDatasets retrieves the full dataset snapshot. Individual records that
// fail to decode are dropped and counted; only transport and payload-level
// failures are returned as errors.
func (c *Client) FetchDatasets(ctx context.Context) ([]dacstatus.DatasetRecord, int, error) {
	if !c.Enabled() {
		return nil, 0, fmt.Errorf("status api endpoint not configured")
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		blob, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, 0, fmt.Errorf("status api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(blob)))
	}

	records, dropped, err := dacstatus.DecodeRecords(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("decode status snapshot: %w", err)
	}
	return records, dropped, nil
}

// ServiceStats probes the endpoint with a HEAD-equivalent GET and reports
// latency and HTTP status.
func (c *Client) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	if !c.Enabled() {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()

	return &ServiceStats{
		PingMS:     time.Since(start).Milliseconds(),
		HTTPStatus: resp.StatusCode,
		Endpoint:   c.endpoint,
	}, nil
}
