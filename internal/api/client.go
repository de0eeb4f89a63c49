// Package api is the REST snapshot client for the metrics endpoints. Each
// call is one idempotent read; retry and backoff are a caller concern (and in
// practice snapshots are one-shot per dashboard start).
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"simscope.ai/internal/metrics"
	"simscope.ai/internal/transform"
)

// Error wraps every failure mode of a snapshot fetch. Status is 0 when the
// transport itself failed (no HTTP exchange happened).
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: %s", e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type Client struct {
	base string
	hc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithHTTPClient exists for tests that need transport control.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	// A 2xx with nothing in it must not propagate as a valid empty state.
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &Error{Message: "empty response for " + path}
	}
	return body, nil
}

func (c *Client) FetchNetwork(ctx context.Context) (*metrics.NetworkData, error) {
	body, err := c.get(ctx, "/api/metrics/network")
	if err != nil {
		return nil, err
	}
	return transform.Network(body)
}

func (c *Client) FetchTimeline(ctx context.Context) (*metrics.TimelineData, error) {
	body, err := c.get(ctx, "/api/metrics/timeline")
	if err != nil {
		return nil, err
	}
	return transform.Timeline(body)
}

func (c *Client) FetchSpatial(ctx context.Context) (*metrics.SpatialData, error) {
	body, err := c.get(ctx, "/api/metrics/spatial")
	if err != nil {
		return nil, err
	}
	return transform.Spatial(body)
}

func (c *Client) FetchInequality(ctx context.Context) (*metrics.InequalityData, error) {
	body, err := c.get(ctx, "/api/metrics/inequality")
	if err != nil {
		return nil, err
	}
	return transform.Inequality(body)
}

func (c *Client) FetchCultural(ctx context.Context) (*metrics.CulturalData, error) {
	body, err := c.get(ctx, "/api/metrics/cultural")
	if err != nil {
		return nil, err
	}
	return transform.Cultural(body)
}

func (c *Client) FetchTimeSeries(ctx context.Context) (*metrics.TimeSeriesData, error) {
	body, err := c.get(ctx, "/api/metrics/timeseries")
	if err != nil {
		return nil, err
	}
	return transform.TimeSeries(body)
}

func (c *Client) AgentDetails(ctx context.Context, id string) (*metrics.AgentDetails, error) {
	body, err := c.get(ctx, "/api/agents/"+id)
	if err != nil {
		return nil, err
	}
	return transform.AgentDetails(body)
}
