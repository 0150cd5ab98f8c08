package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/smartart/internal/domain/ingest"
	"github.com/okian/smartart/pkg/logger"
)

// HTTPClient talks to the service's request/response channel.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	routes  map[string]string
	logger  logger.Logger
}

// NewHTTPClient creates a client for baseURL. Sensor and motion topics map to
// their submission paths.
func NewHTTPClient(baseURL string, timeout time.Duration, sensorTopic, motionTopic string) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		routes: map[string]string{
			sensorTopic: ingest.PathSensor,
			motionTopic: ingest.PathMotion,
		},
		logger: logger.Get().Named("simulate"),
	}
}

// Health checks /healthz.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer c.closeBody(ctx, resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Publish posts payload to the path mapped from topic.
func (c *HTTPClient) Publish(ctx context.Context, topic string, payload []byte) error {
	path, ok := c.routes[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	_, err := c.post(ctx, path, payload)
	return err
}

// LatestVisual returns the time of the newest blended visual.
func (c *HTTPClient) LatestVisual(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/latest_visual", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get latest visual: %w", err)
	}
	defer c.closeBody(ctx, resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrNoVisual
	default:
		return "", fmt.Errorf("%w: latest visual %d", ErrStatus, resp.StatusCode)
	}

	var body struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode latest visual: %w", err)
	}
	if body.Time == "" {
		return "", ErrNoVisual
	}
	return body.Time, nil
}

// Rate submits a rating for the visual produced at visualTime.
func (c *HTTPClient) Rate(ctx context.Context, user string, rating int, visualTime string) error {
	payload, err := json.Marshal(map[string]any{
		"user_id":     user,
		"rating":      rating,
		"visual_time": visualTime,
	})
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}
	_, err = c.post(ctx, "/rate_visual", payload)
	return err
}

func (c *HTTPClient) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer c.closeBody(ctx, resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, fmt.Errorf("%w: %s %d: %s", ErrStatus, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *HTTPClient) closeBody(ctx context.Context, resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		c.logger.Error(ctx, "failed to close response body", logger.Error(err))
	}
}
