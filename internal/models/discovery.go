package models

import "time"

// Discovery lifecycle statuses for the discovered_listings table.
// A discovery is created as pending_research and transitions exactly once
// per enrichment attempt to either researched or research_failed.
const (
	StatusPendingResearch = "pending_research"
	StatusResearched      = "researched"
	StatusResearchFailed  = "research_failed"
)

// DefaultServiceType is assumed when a discovery carries no category tag.
const DefaultServiceType = "venue"

// UnknownField is the placeholder used when a discovery is missing a
// descriptive field. Missing metadata never blocks enrichment.
const UnknownField = "Unknown"

// DiscoveredListing represents one row in the discovered_listings table:
// a vendor or venue found by a discovery run, awaiting deep research.
type DiscoveredListing struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	ServiceType     string   `json:"service_type,omitempty"`
	Location        string   `json:"location"`
	City            string   `json:"city"`
	State           string   `json:"state"`
	Country         string   `json:"country,omitempty"`
	InstagramHandle string   `json:"instagram_handle,omitempty"`
	PostsCount      int      `json:"instagram_posts_count,omitempty"`
	EngagementScore float64  `json:"engagement_score"`
	RecentHashtags  []string `json:"recent_hashtags,omitempty"`
	WhyTrending     string   `json:"why_trending,omitempty"`
	SamplePostURLs  []string `json:"sample_post_urls,omitempty"`
	Status          string   `json:"status"`
	ListingID       string   `json:"listing_id,omitempty"`
	DiscoveredAt    string   `json:"discovered_at,omitempty"`
	ResearchedAt    string   `json:"researched_at,omitempty"`
}

// DisplayName returns the vendor name, or a placeholder when missing.
func (d *DiscoveredListing) DisplayName() string {
	if d.Name == "" {
		return UnknownField
	}
	return d.Name
}

// DisplayLocation returns the free-text location, or a placeholder when missing.
func (d *DiscoveredListing) DisplayLocation() string {
	if d.Location == "" {
		return UnknownField
	}
	return d.Location
}

// DisplayCity returns the city, or a placeholder when missing.
func (d *DiscoveredListing) DisplayCity() string {
	if d.City == "" {
		return UnknownField
	}
	return d.City
}

// DisplayState returns the state code, or a placeholder when missing.
func (d *DiscoveredListing) DisplayState() string {
	if d.State == "" {
		return UnknownField
	}
	return d.State
}

// EffectiveServiceType returns the service category, defaulting to venue
// when the column is absent or empty.
func (d *DiscoveredListing) EffectiveServiceType() string {
	if d.ServiceType == "" {
		return DefaultServiceType
	}
	return d.ServiceType
}

// SyncLog records one discovery or enrichment operation for auditing.
type SyncLog struct {
	ID               string                 `json:"id,omitempty"`
	Source           string                 `json:"source"`
	Status           string                 `json:"status"`
	RecordsProcessed int                    `json:"records_processed"`
	Errors           string                 `json:"errors,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	Timestamp        string                 `json:"timestamp"`
}

// NewSyncLog creates a sync log entry stamped with the current time.
func NewSyncLog(source, status string, recordsProcessed int) SyncLog {
	return SyncLog{
		Source:           source,
		Status:           status,
		RecordsProcessed: recordsProcessed,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
}
