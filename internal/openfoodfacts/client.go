// Package openfoodfacts is a client for the Open Food Facts product API.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxBodySize = 4 << 20

// requestedFields limits the payload to what MapProduct reads.
var requestedFields = strings.Join([]string{
	"code", "status", "status_verbose", "product_name", "brands", "image_url", "nutriments",
	"ingredients_text_en", "ingredients_text", "additives_tags", "categories_tags",
	"nutriscore_grade", "nova_group", "ecoscore_grade",
}, ",")

// TransientError is a network or service failure. It is never retried
// automatically; the caller decides whether to offer a retry.
type TransientError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Client fetches products by barcode
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the API rooted at baseURL,
// e.g. https://world.openfoodfacts.net/api/v2
func NewClient(baseURL string, timeout time.Duration, userAgent string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch issues a single GET /product/{barcode}. Transport failures, non-2xx
// statuses and undecodable bodies are returned as *TransientError.
func (c *Client) Fetch(ctx context.Context, barcode string) (*Response, error) {
	endpoint := fmt.Sprintf("%s/product/%s?fields=%s", c.baseURL, url.PathEscape(barcode), url.QueryEscape(requestedFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("product request failed", zap.String("barcode", barcode), zap.Error(err))
		return nil, &TransientError{Message: "Failed to fetch product data", Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("product request finished",
		zap.String("barcode", barcode),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &TransientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Product not found (Status: %d)", resp.StatusCode),
		}
	}

	var payload Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&payload); err != nil {
		return nil, &TransientError{StatusCode: resp.StatusCode, Message: "Invalid product data", Err: err}
	}
	return &payload, nil
}
