package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// discoveryTimeout is the hard ceiling for one discovery call.
const discoveryTimeout = 60 * time.Second

// DiscoveryResult is the normalized outcome of one geography-scoped
// discovery call.
type DiscoveryResult struct {
	Success        bool   `json:"success"`
	NewDiscoveries int    `json:"new_discoveries"`
	Error          string `json:"error,omitempty"`
}

// DiscoveryClient invokes the remote discovery operations that find new
// vendor candidates for a geography and service category.
type DiscoveryClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewDiscoveryClient creates a discovery client from the environment.
func NewDiscoveryClient() (*DiscoveryClient, error) {
	baseURL := os.Getenv("SUPABASE_URL")
	if baseURL == "" {
		return nil, &ConfigError{Setting: "SUPABASE_URL"}
	}
	serviceKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if serviceKey == "" {
		return nil, &ConfigError{Setting: "SUPABASE_SERVICE_ROLE_KEY"}
	}
	return NewDiscoveryClientWithConfig(strings.TrimRight(baseURL, "/"), serviceKey), nil
}

// NewDiscoveryClientWithConfig creates a discovery client for an explicit
// endpoint.
func NewDiscoveryClientWithConfig(baseURL, apiKey string) *DiscoveryClient {
	return &DiscoveryClient{
		httpClient: &http.Client{Timeout: discoveryTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// DiscoverVenues discovers trending wedding venues for a city. The expanded
// search flag widens the sweep beyond the daily top cities.
func (c *DiscoveryClient) DiscoverVenues(ctx context.Context, city, state string) DiscoveryResult {
	payload := map[string]interface{}{
		"city":           city,
		"state":          state,
		"expandedSearch": true,
	}
	return c.invoke(ctx, "discover-trending-venues", payload)
}

// DiscoverServices discovers trending vendors of one service category for a
// city.
func (c *DiscoveryClient) DiscoverServices(ctx context.Context, city, state, serviceType, serviceLabel string) DiscoveryResult {
	payload := map[string]interface{}{
		"city":         city,
		"state":        state,
		"serviceType":  serviceType,
		"serviceLabel": serviceLabel,
	}
	return c.invoke(ctx, "discover-wedding-services", payload)
}

// invoke posts a payload to a discovery function and collapses every
// failure mode into the result.
func (c *DiscoveryClient) invoke(ctx context.Context, function string, payload map[string]interface{}) DiscoveryResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return DiscoveryResult{Error: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	endpoint := fmt.Sprintf("%s/functions/v1/%s", c.baseURL, function)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return DiscoveryResult{Error: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DiscoveryResult{Error: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return DiscoveryResult{Error: fmt.Sprintf("failed to read response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return DiscoveryResult{Error: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))}
	}

	var result DiscoveryResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return DiscoveryResult{Error: fmt.Sprintf("failed to decode response: %v", err)}
	}
	if !result.Success && result.Error == "" {
		result.Error = "Unknown error"
	}
	return result
}
