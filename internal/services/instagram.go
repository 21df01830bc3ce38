package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"australian-wedding-vendor-scraper/internal/models"
)

const (
	instagramBaseURL   = "https://i.instagram.com/api/v1"
	instagramWebURL    = "https://www.instagram.com"
	instagramUserAgent = "Instagram 269.0.0.18.75 Android (30/11; 480dpi; 1080x2158; Google; Pixel 5; redfin; redfin; en_US)"

	// sessionFileName is the well-known cache location for the
	// authenticated session, reused across invocations in one process.
	sessionFileName = "instagram_session.json"
)

// InstagramSession holds the authenticated session state persisted between
// invocations. It is an explicit handle owned by the client, not a global.
type InstagramSession struct {
	Username  string    `json:"username"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	CSRFToken string    `json:"csrf_token"`
	CreatedAt time.Time `json:"created_at"`
}

// LoadSession reads a cached session from disk.
func LoadSession(path string) (*InstagramSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	var session InstagramSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	return &session, nil
}

// Save writes the session to disk for reuse by later invocations.
func (s *InstagramSession) Save(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// contentAPI is the raw content-fetch surface. The production implementation
// talks to Instagram's private API; tests inject a fake.
type contentAPI interface {
	Login(ctx context.Context, username, password string, session *InstagramSession) error
	HashtagMediasTop(ctx context.Context, tag string, amount int) ([]models.InstagramPost, error)
	LocationSearch(ctx context.Context, query string) ([]models.InstagramLocation, error)
	LocationMediasTop(ctx context.Context, locationID string, amount int) ([]models.InstagramPost, error)
	UserMedias(ctx context.Context, username string, amount int) ([]models.InstagramPost, error)
}

// ContentDiscoveryResult is the outcome of a hashtag or location discovery:
// posts sorted by engagement plus the deduplicated set of content authors.
type ContentDiscoveryResult struct {
	Success           bool                   `json:"success"`
	Hashtag           string                 `json:"hashtag,omitempty"`
	LocationName      string                 `json:"location_name,omitempty"`
	LocationID        string                 `json:"location_id,omitempty"`
	HashtagFilter     string                 `json:"hashtag_filter,omitempty"`
	Posts             []models.InstagramPost `json:"posts"`
	TotalPosts        int                    `json:"total_posts"`
	DiscoveredVendors []string               `json:"discovered_vendors"`
	Error             string                 `json:"error,omitempty"`
}

// UserMonitorResult is the outcome of monitoring one account for new posts.
type UserMonitorResult struct {
	Success    bool                   `json:"success"`
	Username   string                 `json:"username"`
	Posts      []models.InstagramPost `json:"posts"`
	TotalPosts int                    `json:"total_posts"`
	Error      string                 `json:"error,omitempty"`
}

// InstagramClient discovers wedding vendors from Instagram content. All
// calls are strictly sequential; Instagram enforces its own rate limits and
// concurrent use of one session risks a lockout.
type InstagramClient struct {
	api         contentAPI
	username    string
	password    string
	sessionPath string
	session     *InstagramSession
	loggedIn    bool
}

// NewInstagramClient creates a client with credentials from the environment.
// Missing credentials are a fatal configuration error, reported before any
// network call.
func NewInstagramClient() (*InstagramClient, error) {
	username := os.Getenv("INSTAGRAM_USERNAME")
	if username == "" {
		return nil, &ConfigError{Setting: "INSTAGRAM_USERNAME"}
	}
	password := os.Getenv("INSTAGRAM_PASSWORD")
	if password == "" {
		return nil, &ConfigError{Setting: "INSTAGRAM_PASSWORD"}
	}

	return &InstagramClient{
		api:         newInstagramAPI(),
		username:    username,
		password:    password,
		sessionPath: filepath.Join(os.TempDir(), sessionFileName),
	}, nil
}

// newInstagramClientWithAPI wires a client over a custom API surface.
func newInstagramClientWithAPI(api contentAPI, username, password, sessionPath string) *InstagramClient {
	return &InstagramClient{
		api:         api,
		username:    username,
		password:    password,
		sessionPath: sessionPath,
	}
}

// ensureLogin loads the cached session if present and reuses it; a missing
// or stale session triggers a fresh credential login whose session is cached
// for subsequent calls.
func (c *InstagramClient) ensureLogin(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}

	if session, err := LoadSession(c.sessionPath); err == nil {
		if err := c.api.Login(ctx, c.username, c.password, session); err == nil {
			c.session = session
			c.loggedIn = true
			log.Printf("Loaded existing Instagram session for %s", c.username)
			return nil
		}
		log.Printf("Cached Instagram session rejected, logging in fresh")
	}

	session := &InstagramSession{Username: c.username, CreatedAt: time.Now().UTC()}
	if err := c.api.Login(ctx, c.username, c.password, session); err != nil {
		return fmt.Errorf("instagram login failed: %w", err)
	}
	if err := session.Save(c.sessionPath); err != nil {
		log.Printf("Failed to cache Instagram session: %v", err)
	} else {
		log.Printf("Created new Instagram session for %s", c.username)
	}
	c.session = session
	c.loggedIn = true
	return nil
}

// DiscoverHashtag fetches top posts for a hashtag, sorted by engagement
// descending, with the deduplicated set of posting accounts.
func (c *InstagramClient) DiscoverHashtag(ctx context.Context, hashtag string, limit int) (*ContentDiscoveryResult, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	hashtag = strings.TrimPrefix(strings.TrimSpace(hashtag), "#")
	medias, err := c.api.HashtagMediasTop(ctx, hashtag, limit)
	if err != nil {
		return nil, err
	}

	vendors := dedupeVendors(medias)
	posts := make([]models.InstagramPost, len(medias))
	copy(posts, medias)
	sortPostsByEngagement(posts)
	if len(posts) > limit {
		posts = posts[:limit]
	}

	return &ContentDiscoveryResult{
		Success:           true,
		Hashtag:           hashtag,
		Posts:             posts,
		TotalPosts:        len(posts),
		DiscoveredVendors: vendors,
	}, nil
}

// DiscoverLocation fetches top posts for the best-matching location,
// optionally filtered to captions containing a hashtag (with or without the
// leading marker, case-insensitive). With a filter it over-fetches three
// times the limit and stops once enough filtered posts are collected.
func (c *InstagramClient) DiscoverLocation(ctx context.Context, locationText string, limit int, hashtagFilter string) (*ContentDiscoveryResult, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	locations, err := c.api.LocationSearch(ctx, locationText)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, &NotFoundError{What: locationText}
	}

	// First match is the most relevant.
	location := locations[0]
	log.Printf("Found location: %s (ID: %s)", location.Name, location.ID)

	fetchAmount := limit
	if hashtagFilter != "" {
		fetchAmount = limit * 3
	}
	medias, err := c.api.LocationMediasTop(ctx, location.ID, fetchAmount)
	if err != nil {
		return nil, err
	}

	var posts []models.InstagramPost
	seen := make(map[string]bool)
	var vendors []string
	for _, media := range medias {
		if hashtagFilter != "" && !captionContainsTag(media.Caption, hashtagFilter) {
			continue
		}
		if media.Username != "" && !seen[media.Username] {
			seen[media.Username] = true
			vendors = append(vendors, media.Username)
		}
		media.Location = location.Name
		posts = append(posts, media)
		if len(posts) >= limit {
			break
		}
	}
	sortPostsByEngagement(posts)

	result := &ContentDiscoveryResult{
		Success:           true,
		LocationName:      location.Name,
		LocationID:        location.ID,
		Posts:             posts,
		TotalPosts:        len(posts),
		DiscoveredVendors: vendors,
	}
	if hashtagFilter != "" {
		result.HashtagFilter = hashtagFilter
	}
	return result, nil
}

// MonitorUser fetches an account's recent posts, skipping anything older
// than the previous check.
func (c *InstagramClient) MonitorUser(ctx context.Context, username string, limit int, lastMonitoredAt time.Time) (*UserMonitorResult, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	medias, err := c.api.UserMedias(ctx, username, limit)
	if err != nil {
		return nil, err
	}

	var posts []models.InstagramPost
	for _, media := range medias {
		if !lastMonitoredAt.IsZero() && media.PostedAt.Before(lastMonitoredAt) {
			continue
		}
		posts = append(posts, media)
	}

	return &UserMonitorResult{
		Success:    true,
		Username:   username,
		Posts:      posts,
		TotalPosts: len(posts),
	}, nil
}

// sortPostsByEngagement orders posts by likes+comments descending. The sort
// is stable so equal-score posts keep their fetch order.
func sortPostsByEngagement(posts []models.InstagramPost) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].EngagementScore() > posts[j].EngagementScore()
	})
}

// captionContainsTag reports whether a caption mentions the hashtag, with
// or without the leading #, case-insensitively.
func captionContainsTag(caption, hashtag string) bool {
	captionLower := strings.ToLower(caption)
	clean := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hashtag)), "#")
	return strings.Contains(captionLower, "#"+clean) || strings.Contains(captionLower, clean)
}

// dedupeVendors collects the unique posting accounts in first-seen order.
func dedupeVendors(posts []models.InstagramPost) []string {
	seen := make(map[string]bool)
	var vendors []string
	for _, post := range posts {
		if post.Username == "" || seen[post.Username] {
			continue
		}
		seen[post.Username] = true
		vendors = append(vendors, post.Username)
	}
	return vendors
}

// instagramAPI is the production contentAPI backed by Instagram's private
// mobile endpoints.
type instagramAPI struct {
	httpClient *http.Client
	baseURL    string
	webURL     string
	session    *InstagramSession
}

func newInstagramAPI() *instagramAPI {
	return &instagramAPI{
		httpClient: &http.Client{Timeout: discoveryTimeout},
		baseURL:    instagramBaseURL,
		webURL:     instagramWebURL,
	}
}

// igMedia is the wire shape of one media item.
type igMedia struct {
	PK           json.Number `json:"pk"`
	TakenAt      int64       `json:"taken_at"`
	MediaType    int         `json:"media_type"`
	LikeCount    int         `json:"like_count"`
	CommentCount int         `json:"comment_count"`
	Caption      *struct {
		Text string `json:"text"`
	} `json:"caption"`
	User struct {
		PK         json.Number `json:"pk"`
		Username   string      `json:"username"`
		FullName   string      `json:"full_name"`
		IsBusiness bool        `json:"is_business"`
	} `json:"user"`
	ImageVersions2 *struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
	CarouselMedia []igMedia `json:"carousel_media"`
	Location      *struct {
		Name string `json:"name"`
	} `json:"location"`
}

// toPost maps a wire media item to the model, pulling thumbnail URLs for
// photos (1), videos (2) and carousel children (8).
func (m igMedia) toPost() models.InstagramPost {
	post := models.InstagramPost{
		ID:         m.PK.String(),
		Username:   m.User.Username,
		FullName:   m.User.FullName,
		IsBusiness: m.User.IsBusiness,
		PostedAt:   time.Unix(m.TakenAt, 0).UTC(),
		Likes:      m.LikeCount,
		Comments:   m.CommentCount,
		IsVideo:    m.MediaType == 2,
	}
	if m.Caption != nil {
		post.Caption = m.Caption.Text
	}
	if m.Location != nil {
		post.Location = m.Location.Name
	}

	switch m.MediaType {
	case 1, 2:
		if m.ImageVersions2 != nil && len(m.ImageVersions2.Candidates) > 0 {
			post.ImageURLs = append(post.ImageURLs, m.ImageVersions2.Candidates[0].URL)
		}
	case 8:
		for _, child := range m.CarouselMedia {
			if child.MediaType == 1 && child.ImageVersions2 != nil && len(child.ImageVersions2.Candidates) > 0 {
				post.ImageURLs = append(post.ImageURLs, child.ImageVersions2.Candidates[0].URL)
			}
		}
	}
	return post
}

// Login validates a cached session or performs a fresh credential login,
// populating the session handle with the resulting tokens.
func (a *instagramAPI) Login(ctx context.Context, username, password string, session *InstagramSession) error {
	if session.SessionID != "" {
		a.session = session
		if err := a.validateSession(ctx); err != nil {
			a.session = nil
			return err
		}
		return nil
	}

	csrfToken, err := a.fetchCSRFToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.webURL+"/api/v1/web/accounts/login/ajax/", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("User-Agent", instagramUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrfToken)
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: csrfToken})

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "instagram login", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if err := classifyRateLimit(resp.StatusCode, body); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "instagram login", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var login struct {
		Authenticated bool   `json:"authenticated"`
		UserID        string `json:"userId"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if !login.Authenticated {
		return fmt.Errorf("instagram rejected credentials for %s (status %s)", username, login.Status)
	}

	session.UserID = login.UserID
	session.CSRFToken = csrfToken
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "sessionid" {
			session.SessionID = cookie.Value
		}
	}
	if session.SessionID == "" {
		return fmt.Errorf("instagram login returned no session cookie")
	}
	a.session = session
	return nil
}

// fetchCSRFToken primes a CSRF token from the web endpoint.
func (a *instagramAPI) fetchCSRFToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.webURL+"/accounts/login/", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create csrf request: %w", err)
	}
	req.Header.Set("User-Agent", instagramUserAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "instagram csrf", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" {
			return cookie.Value, nil
		}
	}
	return "", fmt.Errorf("no csrf token in login page response")
}

// validateSession makes a cheap authenticated call to confirm the cached
// session still works.
func (a *instagramAPI) validateSession(ctx context.Context) error {
	_, err := a.get(ctx, "/accounts/current_user/", nil)
	return err
}

func (a *instagramAPI) HashtagMediasTop(ctx context.Context, tag string, amount int) ([]models.InstagramPost, error) {
	params := url.Values{}
	params.Set("max_results", fmt.Sprintf("%d", amount))
	body, err := a.get(ctx, "/feed/tag/"+url.PathEscape(tag)+"/", params)
	if err != nil {
		return nil, err
	}
	return decodeMediaFeed(body, amount)
}

func (a *instagramAPI) LocationSearch(ctx context.Context, query string) ([]models.InstagramLocation, error) {
	params := url.Values{}
	params.Set("search_query", query)
	body, err := a.get(ctx, "/location_search/", params)
	if err != nil {
		return nil, err
	}

	var feed struct {
		Venues []struct {
			ExternalID json.Number `json:"external_id"`
			Name       string      `json:"name"`
			Address    string      `json:"address"`
			Lat        float64     `json:"lat"`
			Lng        float64     `json:"lng"`
		} `json:"venues"`
	}
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to decode location search: %w", err)
	}

	locations := make([]models.InstagramLocation, 0, len(feed.Venues))
	for _, venue := range feed.Venues {
		locations = append(locations, models.InstagramLocation{
			ID:      venue.ExternalID.String(),
			Name:    venue.Name,
			Address: venue.Address,
			Lat:     venue.Lat,
			Lng:     venue.Lng,
		})
	}
	return locations, nil
}

func (a *instagramAPI) LocationMediasTop(ctx context.Context, locationID string, amount int) ([]models.InstagramPost, error) {
	params := url.Values{}
	params.Set("max_results", fmt.Sprintf("%d", amount))
	body, err := a.get(ctx, "/feed/location/"+url.PathEscape(locationID)+"/", params)
	if err != nil {
		return nil, err
	}
	return decodeMediaFeed(body, amount)
}

func (a *instagramAPI) UserMedias(ctx context.Context, username string, amount int) ([]models.InstagramPost, error) {
	body, err := a.get(ctx, "/users/"+url.PathEscape(username)+"/usernameinfo/", nil)
	if err != nil {
		return nil, err
	}
	var info struct {
		User struct {
			PK json.Number `json:"pk"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", amount))
	feedBody, err := a.get(ctx, "/feed/user/"+info.User.PK.String()+"/", params)
	if err != nil {
		return nil, err
	}
	return decodeMediaFeed(feedBody, amount)
}

// decodeMediaFeed parses an items feed into posts, capped at amount.
func decodeMediaFeed(body []byte, amount int) ([]models.InstagramPost, error) {
	var feed struct {
		Items []igMedia `json:"items"`
	}
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to decode media feed: %w", err)
	}

	posts := make([]models.InstagramPost, 0, len(feed.Items))
	for _, item := range feed.Items {
		posts = append(posts, item.toPost())
		if len(posts) >= amount {
			break
		}
	}
	return posts, nil
}

// get performs an authenticated GET against the private API, classifying
// rate-limit responses distinctly from generic failures.
func (a *instagramAPI) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := a.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", instagramUserAgent)
	if a.session != nil {
		req.AddCookie(&http.Cookie{Name: "sessionid", Value: a.session.SessionID})
		req.AddCookie(&http.Cookie{Name: "csrftoken", Value: a.session.CSRFToken})
		req.Header.Set("X-CSRFToken", a.session.CSRFToken)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "instagram " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if err := classifyRateLimit(resp.StatusCode, body); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "instagram " + path, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// classifyRateLimit surfaces Instagram's throttle signal as its own error
// kind so callers can apply a longer backoff than for normal failures.
func classifyRateLimit(statusCode int, body []byte) error {
	if statusCode == http.StatusTooManyRequests {
		return &RateLimitError{Message: "Rate limited by Instagram. Please wait a few minutes."}
	}
	if strings.Contains(strings.ToLower(string(body)), "please wait a few minutes") {
		return &RateLimitError{Message: "Rate limited by Instagram. Please wait a few minutes."}
	}
	return nil
}
