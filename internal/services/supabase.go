package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"australian-wedding-vendor-scraper/internal/models"
)

const (
	discoveriesTable  = "discovered_listings"
	listingsTable     = "listings"
	listingMediaTable = "listing_media"
	packagesTable     = "packages"
	syncLogsTable     = "sync_logs"
)

// SupabaseClient is a thin accessor over the hosted record store's REST
// interface: filtered/ordered/limited selects and partial updates by id.
// It performs no retries; retry policy belongs to callers.
type SupabaseClient struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
}

// DiscoveryQuery describes a worklist select over discovered_listings.
type DiscoveryQuery struct {
	Status     string
	OrderBy    string
	Descending bool
	Limit      int
}

// NewSupabaseClient creates a record store client from the environment.
func NewSupabaseClient() (*SupabaseClient, error) {
	baseURL := os.Getenv("SUPABASE_URL")
	if baseURL == "" {
		return nil, &ConfigError{Setting: "SUPABASE_URL"}
	}
	serviceKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if serviceKey == "" {
		return nil, &ConfigError{Setting: "SUPABASE_SERVICE_ROLE_KEY"}
	}
	return NewSupabaseClientWithConfig(baseURL, serviceKey), nil
}

// NewSupabaseClientWithConfig creates a record store client with explicit
// endpoint and credentials.
func NewSupabaseClientWithConfig(baseURL, serviceKey string) *SupabaseClient {
	return &SupabaseClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
	}
}

// QueryDiscoveries fetches discovery records matching the query, in order.
func (s *SupabaseClient) QueryDiscoveries(ctx context.Context, q DiscoveryQuery) ([]models.DiscoveredListing, error) {
	params := url.Values{}
	params.Set("select", "*")
	if q.Status != "" {
		params.Set("status", "eq."+q.Status)
	}
	if q.OrderBy != "" {
		order := q.OrderBy
		if q.Descending {
			order += ".desc"
		}
		params.Set("order", order)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, _, err := s.get(ctx, discoveriesTable, params, nil)
	if err != nil {
		return nil, err
	}

	var discoveries []models.DiscoveredListing
	if err := json.Unmarshal(body, &discoveries); err != nil {
		return nil, fmt.Errorf("failed to decode discoveries: %w", err)
	}
	return discoveries, nil
}

// UpdateDiscovery applies a partial update to one discovery record by id.
// The full record is never required.
func (s *SupabaseClient) UpdateDiscovery(ctx context.Context, id string, fields map[string]interface{}) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal update fields: %w", err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", s.baseURL, discoveriesTable, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create update request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Prefer", "return=minimal")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "update discovery", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &TransportError{Op: "update discovery", StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// StatusCounts reports the discovery queue composition by status.
func (s *SupabaseClient) StatusCounts(ctx context.Context) (map[string]int, error) {
	params := url.Values{}
	params.Set("select", "status")

	body, _, err := s.get(ctx, discoveriesTable, params, nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode status rows: %w", err)
	}

	counts := make(map[string]int)
	for _, row := range rows {
		status := row.Status
		if status == "" {
			status = "unknown"
		}
		counts[status]++
	}
	return counts, nil
}

// CountListings returns the total number of listings in the directory,
// taken from the exact-count Content-Range header.
func (s *SupabaseClient) CountListings(ctx context.Context) (int, error) {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("limit", "1")

	headers := map[string]string{"Prefer": "count=exact"}
	_, resp, err := s.get(ctx, listingsTable, params, headers)
	if err != nil {
		return 0, err
	}

	// Content-Range is "<from>-<to>/<total>"
	contentRange := resp.Header.Get("Content-Range")
	parts := strings.Split(contentRange, "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("unexpected Content-Range header: %q", contentRange)
	}
	total, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("unexpected listing count %q: %w", parts[1], err)
	}
	return total, nil
}

// FindListingIDByName looks up an existing listing by fuzzy title match and
// category. Returns an empty id when no listing matches.
func (s *SupabaseClient) FindListingIDByName(ctx context.Context, name, category string) (string, error) {
	params := url.Values{}
	params.Set("select", "id")
	params.Set("title", "ilike.*"+name+"*")
	if category != "" {
		params.Set("category", "eq."+category)
	}
	params.Set("limit", "1")

	body, _, err := s.get(ctx, listingsTable, params, nil)
	if err != nil {
		return "", err
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return "", fmt.Errorf("failed to decode listing rows: %w", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].ID, nil
}

// InsertDiscoveries stores newly discovered candidates as pending research.
func (s *SupabaseClient) InsertDiscoveries(ctx context.Context, discoveries []models.DiscoveredListing) error {
	if len(discoveries) == 0 {
		return nil
	}
	return s.post(ctx, discoveriesTable, discoveries, nil, nil)
}

// InsertListing creates a listing and returns it with the store-assigned id.
func (s *SupabaseClient) InsertListing(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	var created []models.Listing
	headers := map[string]string{"Prefer": "return=representation"}
	if err := s.post(ctx, listingsTable, listing, headers, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("listing insert returned no rows")
	}
	return &created[0], nil
}

// InsertListingMedia attaches image rows to a listing.
func (s *SupabaseClient) InsertListingMedia(ctx context.Context, media []models.ListingMedia) error {
	if len(media) == 0 {
		return nil
	}
	return s.post(ctx, listingMediaTable, media, nil, nil)
}

// InsertPackages attaches wedding package rows to a listing.
func (s *SupabaseClient) InsertPackages(ctx context.Context, packages []models.Package) error {
	if len(packages) == 0 {
		return nil
	}
	return s.post(ctx, packagesTable, packages, nil, nil)
}

// InsertSyncLog records an operation outcome for auditing.
func (s *SupabaseClient) InsertSyncLog(ctx context.Context, entry models.SyncLog) error {
	return s.post(ctx, syncLogsTable, entry, nil, nil)
}

// get performs a GET against a table endpoint and returns the raw body and
// response for header inspection.
func (s *SupabaseClient) get(ctx context.Context, table string, params url.Values, headers map[string]string) ([]byte, *http.Response, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create query request: %w", err)
	}
	s.setHeaders(req)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Op: "query " + table, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s response: %w", table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &TransportError{Op: "query " + table, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, resp, nil
}

// post performs an insert against a table endpoint, optionally decoding the
// returned representation into out.
func (s *SupabaseClient) post(ctx context.Context, table string, payload interface{}, headers map[string]string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", table, err)
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create insert request: %w", err)
	}
	s.setHeaders(req)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "insert " + table, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: "insert " + table, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", table, err)
		}
	}
	return nil
}

func (s *SupabaseClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")
}
