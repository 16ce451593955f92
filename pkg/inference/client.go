package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papilink/relief/pkg/depth"
)

// DefaultGridSize is the depth grid resolution requested from the service.
const DefaultGridSize = 256

// Compile-time interface check.
var _ Estimator = (*Client)(nil)

// Client is an HTTP Estimator backed by a remote depth-estimation
// service. Load must succeed before EstimateDepth can be used.
type Client struct {
	httpClient *http.Client
	endpoint   string // POST photo, receive depth grid
	modelURL   string // GET readiness / model manifest
	gridSize   int
	policy     RetryPolicy
	logger     *zap.Logger

	mu    sync.Mutex
	ready bool
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Endpoint string
	ModelURL string
	GridSize int
	Timeout  time.Duration
	Policy   RetryPolicy
}

// NewClient creates an HTTP estimator client. Zero config fields get
// sensible defaults.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GridSize < 2 {
		cfg.GridSize = DefaultGridSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = DefaultRetryPolicy()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		modelURL:   cfg.ModelURL,
		gridSize:   cfg.GridSize,
		policy:     cfg.Policy,
		logger:     logger,
	}
}

// Load checks the model endpoint until it reports ready, under the
// configured retry policy. Safe to call again after a failure.
func (c *Client) Load(ctx context.Context) error {
	err := c.policy.Do(ctx, c.logger, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL, nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("model endpoint returned %s", resp.Status)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("depth model load failed", zap.Error(err))
		return fmt.Errorf("load depth model: %w", err)
	}

	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	c.logger.Info("depth model ready", zap.String("url", c.modelURL))
	return nil
}

// Ready implements Estimator.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// depthResponse is the service's wire format: a row-major grid of raw
// depth values at the requested resolution.
type depthResponse struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float64 `json:"values"`
}

// EstimateDepth implements Estimator. The raw model output is rescaled to
// [0,1] so downstream consumers see a normalized field regardless of the
// model's output range.
func (c *Client) EstimateDepth(ctx context.Context, photo []byte) (*depth.Field, error) {
	if !c.Ready() {
		return nil, &ModelNotReadyError{Reason: "Load has not succeeded"}
	}

	url := fmt.Sprintf("%s?size=%d", c.endpoint, c.gridSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(photo))
	if err != nil {
		return nil, fmt.Errorf("estimate depth: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("estimate depth: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("depth service returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var dr depthResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode depth response: %w", err)
	}

	normalize(dr.Values)
	field, err := depth.New(dr.Width, dr.Height, dr.Values)
	if err != nil {
		return nil, fmt.Errorf("depth response: %w", err)
	}

	c.logger.Debug("depth estimated",
		zap.Int("width", field.Width),
		zap.Int("height", field.Height),
	)
	return field, nil
}

// normalize rescales values to [0,1] in place. A constant grid maps to 0.
func normalize(values []float64) {
	if len(values) == 0 {
		return
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	if span == 0 {
		for i := range values {
			values[i] = 0
		}
		return
	}
	for i := range values {
		values[i] = (values[i] - min) / span
	}
}
