// Package vision talks to the external image-analysis service that turns a
// food photo into a nutrition estimate. The service is an opaque
// collaborator: the server depends only on its request/response shapes and
// surfaces its failures to the caller without retrying.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/snapcal/apiserver/config"
	"github.com/snapcal/apiserver/types"
)

const (
	defaultTimeout  = 30 * time.Second
	apiKeyHeader    = "X-Api-Key"
	maxResponseSize = 1 << 20
)

// Analyzer estimates nutrition facts from a base64-encoded food photo.
type Analyzer interface {
	Analyze(ctx context.Context, imageBase64, mimeType string) (types.Nutrition, error)
}

// Client is an HTTP Analyzer for the configured analysis endpoint.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client from config.
func NewClient(cfg config.VisionConfig) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("vision url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type analyzeRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType,omitempty"`
}

// Analyze posts the image to the analysis service and decodes its
// nutrition estimate.
func (c *Client) Analyze(ctx context.Context, imageBase64, mimeType string) (types.Nutrition, error) {
	body, err := json.Marshal(analyzeRequest{Image: imageBase64, MimeType: mimeType})
	if err != nil {
		return types.Nutrition{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return types.Nutrition{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.Nutrition{}, fmt.Errorf("analyze image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.Nutrition{}, fmt.Errorf("analyze image: unexpected status %d", resp.StatusCode)
	}

	var nutrition types.Nutrition
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&nutrition); err != nil {
		return types.Nutrition{}, fmt.Errorf("analyze image: decode response: %w", err)
	}
	if strings.TrimSpace(nutrition.FoodName) == "" {
		return types.Nutrition{}, errors.New("analyze image: empty food name in response")
	}
	return nutrition, nil
}
