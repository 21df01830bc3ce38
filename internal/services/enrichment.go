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

// researchTimeout is the hard ceiling for one deep-research call.
const researchTimeout = 60 * time.Second

// EnrichmentRequest is the payload for the deep-research function.
type EnrichmentRequest struct {
	VenueName    string `json:"venueName"`
	Location     string `json:"location"`
	City         string `json:"city"`
	State        string `json:"state"`
	ServiceType  string `json:"serviceType"`
	ForceRefresh bool   `json:"forceRefresh"`
}

// EnrichmentResult is the normalized outcome of one enrichment attempt.
// Every transport failure, timeout, or remote-reported failure collapses
// into Success=false with a reason; business logic never sees raw errors.
type EnrichmentResult struct {
	Success      bool
	ListingID    string
	PhotoCount   int
	PackageCount int
	Reason       string
}

// EnrichmentClient invokes the remote deep-research operation that turns a
// discovered candidate into a full listing.
type EnrichmentClient struct {
	httpClient  *http.Client
	functionURL string
	apiKey      string
}

// NewEnrichmentClient creates an enrichment client from the environment.
func NewEnrichmentClient() (*EnrichmentClient, error) {
	baseURL := os.Getenv("SUPABASE_URL")
	if baseURL == "" {
		return nil, &ConfigError{Setting: "SUPABASE_URL"}
	}
	serviceKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if serviceKey == "" {
		return nil, &ConfigError{Setting: "SUPABASE_SERVICE_ROLE_KEY"}
	}
	return NewEnrichmentClientWithConfig(strings.TrimRight(baseURL, "/")+"/functions/v1/deep-research-venue", serviceKey), nil
}

// NewEnrichmentClientWithConfig creates an enrichment client for an explicit
// function endpoint.
func NewEnrichmentClientWithConfig(functionURL, apiKey string) *EnrichmentClient {
	return &EnrichmentClient{
		httpClient:  &http.Client{Timeout: researchTimeout},
		functionURL: functionURL,
		apiKey:      apiKey,
	}
}

// researchResponse is the remote function's response envelope.
type researchResponse struct {
	Success bool `json:"success"`
	Listing struct {
		ID       string        `json:"id"`
		Images   []interface{} `json:"images"`
		Packages []interface{} `json:"packages"`
	} `json:"listing"`
	Error string `json:"error"`
}

// Research runs deep research for one candidate. The result is always
// populated; failures carry a human-readable reason.
func (c *EnrichmentClient) Research(ctx context.Context, req EnrichmentRequest) *EnrichmentResult {
	payload, err := json.Marshal(req)
	if err != nil {
		return &EnrichmentResult{Reason: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.functionURL, bytes.NewReader(payload))
	if err != nil {
		return &EnrichmentResult{Reason: fmt.Sprintf("failed to create request: %v", err)}
	}
	httpReq.Header.Set("apikey", c.apiKey)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &EnrichmentResult{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &EnrichmentResult{Reason: fmt.Sprintf("failed to read response: %v", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &EnrichmentResult{Reason: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))}
	}

	var research researchResponse
	if err := json.Unmarshal(body, &research); err != nil {
		return &EnrichmentResult{Reason: fmt.Sprintf("failed to decode response: %v", err)}
	}

	if !research.Success {
		reason := research.Error
		if reason == "" {
			reason = "Unknown error"
		}
		return &EnrichmentResult{Reason: reason}
	}

	return &EnrichmentResult{
		Success:      true,
		ListingID:    research.Listing.ID,
		PhotoCount:   len(research.Listing.Images),
		PackageCount: len(research.Listing.Packages),
	}
}
