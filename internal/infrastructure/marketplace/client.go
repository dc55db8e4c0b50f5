package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/resobyte/ambar-hub-sub004/internal/application"
	"github.com/resobyte/ambar-hub-sub004/internal/domain"
)

const defaultBatchSize = 100

// ProviderConfig holds one marketplace's endpoint and credentials
type ProviderConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	APISecret  string
	SupplierID string
	BatchSize  int
}

// Config holds the outbound marketplace client configuration
type Config struct {
	Timeout    time.Duration
	RetryCount int
	Providers  []ProviderConfig
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout:    15 * time.Second,
		RetryCount: 0, // retries are the batcher's job, not the transport's
	}
}

// Client pushes stock updates to marketplace providers over HTTP. An HTTP
// 429 from the provider surfaces as domain.ErrRateLimited so callers can
// retry without burning attempts.
type Client struct {
	http      *resty.Client
	providers map[string]ProviderConfig
	logger    *slog.Logger
}

// NewClient creates the marketplace client
func NewClient(config *Config, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(config.RetryCount).
		SetHeader("Content-Type", "application/json")

	providers := make(map[string]ProviderConfig, len(config.Providers))
	for _, p := range config.Providers {
		if p.BatchSize <= 0 {
			p.BatchSize = defaultBatchSize
		}
		providers[p.Name] = p
	}

	return &Client{
		http:      httpClient,
		providers: providers,
		logger:    logger.With(slog.String("component", "marketplace_client")),
	}
}

type pushRequest struct {
	Items []application.StockPushItem `json:"items"`
}

type pushResponse struct {
	BatchRequestID string `json:"batchRequestId,omitempty"`
	Failures       []struct {
		Barcode string `json:"barcode"`
		Message string `json:"message"`
	} `json:"failures,omitempty"`
}

// Push sends one batch of {barcode, quantity} pairs to a provider
func (c *Client) Push(ctx context.Context, provider, storeID string, items []application.StockPushItem) (*application.StockPushResult, error) {
	cfg, ok := c.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown marketplace provider: %s", provider)
	}

	endpoint := fmt.Sprintf("%s/suppliers/%s/products/price-and-inventory", cfg.BaseURL, cfg.SupplierID)

	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(cfg.APIKey, cfg.APISecret).
		SetBody(pushRequest{Items: items}).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to push stock to %s: %w", provider, err)
	}

	result := &application.StockPushResult{
		Endpoint:    endpoint,
		StatusCode:  resp.StatusCode(),
		RawResponse: json.RawMessage(resp.Body()),
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		c.logger.Warn("marketplace throttled push",
			slog.String("provider", provider),
			slog.String("storeId", storeID),
		)
		return result, fmt.Errorf("%w: provider %s", domain.ErrRateLimited, provider)
	case resp.StatusCode() >= 400:
		return result, fmt.Errorf("marketplace push to %s failed with status %d", provider, resp.StatusCode())
	}

	var body pushResponse
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		for _, f := range body.Failures {
			result.FailedBarcodes = append(result.FailedBarcodes, f.Barcode)
		}
	}

	c.logger.Info("pushed stock batch",
		slog.String("provider", provider),
		slog.String("storeId", storeID),
		slog.Int("items", len(items)),
		slog.Int("failed", len(result.FailedBarcodes)),
	)
	return result, nil
}

// MaxBatchSize returns the provider's batch size limit
func (c *Client) MaxBatchSize(provider string) int {
	if cfg, ok := c.providers[provider]; ok {
		return cfg.BatchSize
	}
	return defaultBatchSize
}
