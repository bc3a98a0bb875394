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
	openAIDefaultBaseURL = "https://api.openai.com"
	openAITimeout        = 30 * time.Second
)

// OpenAIBudgetClient reads spend from an OpenAI-compatible billing endpoint.
// Several gateways and resellers expose the same dashboard shape, so the base
// URL is configurable.
type OpenAIBudgetClient struct {
	name      string
	apiKeyRef string
	auth      headerAuth
	client    *http.Client
	baseURL   string
}

// OpenAIBudgetConfig configures an OpenAI-compatible budget client.
type OpenAIBudgetConfig struct {
	Name      string // provider name for attribution
	APIKeyRef string // billed account reference
	APIKey    string
	BaseURL   string // empty means api.openai.com
}

// NewOpenAIBudgetClient creates a budget client for an OpenAI-compatible API.
func NewOpenAIBudgetClient(cfg OpenAIBudgetConfig) (*OpenAIBudgetClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for budget client %q", cfg.Name)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}

	client := &http.Client{
		Timeout: openAITimeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &OpenAIBudgetClient{
		name:      cfg.Name,
		apiKeyRef: cfg.APIKeyRef,
		auth:      newBearerAuth(cfg.APIKey),
		client:    client,
		baseURL:   baseURL,
	}, nil
}

// Name returns the provider name
func (c *OpenAIBudgetClient) Name() string {
	return c.name
}

// FetchBudget reads the month-to-date spend from the billing usage endpoint.
func (c *OpenAIBudgetClient) FetchBudget(ctx context.Context) (*BudgetInfo, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	url := fmt.Sprintf("%s/dashboard/billing/usage?start_date=%s&end_date=%s",
		c.baseURL, start.Format("2006-01-02"), now.Format("2006-01-02"))

	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.auth.apply(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("budget fetch failed: status=%d, body=%s", resp.StatusCode, string(body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The dashboard endpoint reports total_usage in cents.
	var response struct {
		TotalUsage *float64 `json:"total_usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	info := &BudgetInfo{APIKeyRef: c.apiKeyRef}
	if response.TotalUsage != nil {
		usd := *response.TotalUsage / 100
		info.SpentUSD = &usd
	}
	return info, nil
}

// Close cleans up resources
func (c *OpenAIBudgetClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
