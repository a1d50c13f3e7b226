// Package device talks to the ESP32 microcontroller that drives the water
// pump and reads the soil moisture sensor.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/crop-water-service/internal/observability"
)

// Client calls the microcontroller's HTTP endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a device client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// SetPump switches the pump on or off.
func (c *Client) SetPump(ctx context.Context, on bool) error {
	state := "off"
	if on {
		state = "on"
	}
	params := url.Values{"state": {state}}

	resp, err := c.get(ctx, "pump", c.baseURL+"/pump?"+params.Encode())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("pump switched", "state", state)
	return nil
}

// Moisture reads the current soil moisture level.
func (c *Client) Moisture(ctx context.Context) (float64, error) {
	resp, err := c.get(ctx, "moisture", c.baseURL+"/moisture")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var body moistureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.DeviceRequests.WithLabelValues("moisture", "error").Inc()
		return 0, fmt.Errorf("decode moisture response: %w", err)
	}
	if body.Moisture == nil {
		c.metrics.DeviceRequests.WithLabelValues("moisture", "error").Inc()
		return 0, fmt.Errorf("decode moisture response: missing %q field", "moisture")
	}
	return *body.Moisture, nil
}

// get issues one request and returns the response only for a 200 status.
// Metrics for transport and status failures are recorded here.
func (c *Client) get(ctx context.Context, endpoint, fullURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.DeviceDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.DeviceRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		c.metrics.DeviceRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("device %s error: status %d: %s", endpoint, resp.StatusCode, body)
	}

	c.metrics.DeviceRequests.WithLabelValues(endpoint, "success").Inc()
	return resp, nil
}

type moistureResponse struct {
	Moisture *float64 `json:"moisture"`
}
