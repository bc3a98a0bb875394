package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicTimeout        = 30 * time.Second
)

// AnthropicBudgetClient reads organization spend from the Anthropic admin API.
type AnthropicBudgetClient struct {
	name      string
	apiKeyRef string
	adminKey  string
	client    *http.Client
	baseURL   string
}

// AnthropicBudgetConfig configures an Anthropic budget client.
type AnthropicBudgetConfig struct {
	Name      string
	APIKeyRef string
	AdminKey  string // admin API key, not a workspace key
	BaseURL   string
}

// NewAnthropicBudgetClient creates a budget client for the Anthropic admin API.
func NewAnthropicBudgetClient(cfg AnthropicBudgetConfig) (*AnthropicBudgetClient, error) {
	if cfg.AdminKey == "" {
		return nil, fmt.Errorf("admin key is required for budget client %q", cfg.Name)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}

	return &AnthropicBudgetClient{
		name:      cfg.Name,
		apiKeyRef: cfg.APIKeyRef,
		adminKey:  cfg.AdminKey,
		client:    &http.Client{Timeout: anthropicTimeout},
		baseURL:   baseURL,
	}, nil
}

// Name returns the provider name
func (c *AnthropicBudgetClient) Name() string {
	return c.name
}

// FetchBudget reads the month-to-date cost report.
func (c *AnthropicBudgetClient) FetchBudget(ctx context.Context) (*BudgetInfo, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	url := fmt.Sprintf("%s/v1/organizations/cost_report?starting_at=%s",
		c.baseURL, start.Format(time.RFC3339))

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.adminKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cost report fetch failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Cost buckets report amounts as decimal strings in USD.
	var response struct {
		Data []struct {
			Results []struct {
				Amount json.Number `json:"amount"`
			} `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	info := &BudgetInfo{APIKeyRef: c.apiKeyRef}
	total := 0.0
	seen := false
	for _, bucket := range response.Data {
		for _, result := range bucket.Results {
			amount, err := result.Amount.Float64()
			if err != nil {
				continue
			}
			total += amount
			seen = true
		}
	}
	if seen {
		info.SpentUSD = &total
	}
	return info, nil
}

// Close cleans up resources
func (c *AnthropicBudgetClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
