package services

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"australian-wedding-vendor-scraper/internal/models"
)

type fakeContentAPI struct {
	loginErr      error
	rejectSession *InstagramSession
	logins        int

	hashtagPosts  []models.InstagramPost
	hashtagErr    error
	hashtagCalls  []string
	hashtagAmount int

	locations      []models.InstagramLocation
	locationErr    error
	locationPosts  []models.InstagramPost
	locationAmount int

	userPosts []models.InstagramPost
	userErr   error
}

func (f *fakeContentAPI) Login(ctx context.Context, username, password string, session *InstagramSession) error {
	f.logins++
	if f.rejectSession != nil && session.SessionID == f.rejectSession.SessionID {
		return errors.New("session expired")
	}
	if f.loginErr != nil {
		return f.loginErr
	}
	session.UserID = "uid-1"
	session.SessionID = "sid-1"
	return nil
}

func (f *fakeContentAPI) HashtagMediasTop(ctx context.Context, tag string, amount int) ([]models.InstagramPost, error) {
	f.hashtagCalls = append(f.hashtagCalls, tag)
	f.hashtagAmount = amount
	return f.hashtagPosts, f.hashtagErr
}

func (f *fakeContentAPI) LocationSearch(ctx context.Context, query string) ([]models.InstagramLocation, error) {
	return f.locations, f.locationErr
}

func (f *fakeContentAPI) LocationMediasTop(ctx context.Context, locationID string, amount int) ([]models.InstagramPost, error) {
	f.locationAmount = amount
	return f.locationPosts, nil
}

func (f *fakeContentAPI) UserMedias(ctx context.Context, username string, amount int) ([]models.InstagramPost, error) {
	return f.userPosts, f.userErr
}

func testInstagramClient(t *testing.T, api contentAPI) *InstagramClient {
	t.Helper()
	sessionPath := filepath.Join(t.TempDir(), "session.json")
	return newInstagramClientWithAPI(api, "tester", "secret", sessionPath)
}

func post(id, username string, likes, comments int) models.InstagramPost {
	return models.InstagramPost{ID: id, Username: username, Likes: likes, Comments: comments}
}

func TestDiscoverHashtagSortsByEngagement(t *testing.T) {
	api := &fakeContentAPI{
		hashtagPosts: []models.InstagramPost{
			post("a", "vendor_a", 10, 2),
			post("b", "vendor_b", 100, 5),
			post("c", "vendor_c", 10, 2),
			post("d", "vendor_d", 50, 0),
		},
	}
	client := testInstagramClient(t, api)

	result, err := client.DiscoverHashtag(context.Background(), "#sydneyweddingvenue", 10)
	if err != nil {
		t.Fatalf("DiscoverHashtag returned error: %v", err)
	}

	if api.hashtagCalls[0] != "sydneyweddingvenue" {
		t.Errorf("hashtag sent = %q, want leading marker stripped", api.hashtagCalls[0])
	}
	if result.Hashtag != "sydneyweddingvenue" {
		t.Errorf("result hashtag = %q, want sydneyweddingvenue", result.Hashtag)
	}

	var order []string
	for _, p := range result.Posts {
		order = append(order, p.ID)
	}
	// b (105), d (50), then a before c: equal scores keep fetch order.
	want := []string{"b", "d", "a", "c"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("post order = %v, want %v", order, want)
	}
}

func TestDiscoverHashtagTruncatesToLimit(t *testing.T) {
	api := &fakeContentAPI{
		hashtagPosts: []models.InstagramPost{
			post("a", "vendor_a", 1, 0),
			post("b", "vendor_b", 3, 0),
			post("c", "vendor_c", 2, 0),
		},
	}
	client := testInstagramClient(t, api)

	result, err := client.DiscoverHashtag(context.Background(), "weddings", 2)
	if err != nil {
		t.Fatalf("DiscoverHashtag returned error: %v", err)
	}
	if len(result.Posts) != 2 || result.TotalPosts != 2 {
		t.Errorf("got %d posts (total %d), want 2", len(result.Posts), result.TotalPosts)
	}
	if result.Posts[0].ID != "b" {
		t.Errorf("top post = %q, want highest engagement first", result.Posts[0].ID)
	}
}

func TestDiscoverHashtagDedupesVendors(t *testing.T) {
	api := &fakeContentAPI{
		hashtagPosts: []models.InstagramPost{
			post("a", "vendor_a", 5, 0),
			post("b", "vendor_b", 4, 0),
			post("c", "vendor_a", 3, 0),
			{ID: "d", Likes: 2}, // no username
		},
	}
	client := testInstagramClient(t, api)

	result, err := client.DiscoverHashtag(context.Background(), "weddings", 10)
	if err != nil {
		t.Fatalf("DiscoverHashtag returned error: %v", err)
	}
	want := []string{"vendor_a", "vendor_b"}
	if !reflect.DeepEqual(result.DiscoveredVendors, want) {
		t.Errorf("DiscoveredVendors = %v, want %v", result.DiscoveredVendors, want)
	}
}

func TestDiscoverLocationNotFound(t *testing.T) {
	client := testInstagramClient(t, &fakeContentAPI{})

	_, err := client.DiscoverLocation(context.Background(), "Nowhere Beach", 10, "")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if !strings.Contains(notFound.Error(), "Nowhere Beach") {
		t.Errorf("error %q does not name the missing location", notFound.Error())
	}
}

func TestDiscoverLocationHashtagFilter(t *testing.T) {
	api := &fakeContentAPI{
		locations: []models.InstagramLocation{
			{ID: "loc-1", Name: "Bondi Beach"},
			{ID: "loc-2", Name: "Bondi Junction"},
		},
		locationPosts: []models.InstagramPost{
			{ID: "a", Username: "vendor_a", Caption: "Beautiful #Wedding day", Likes: 5},
			{ID: "b", Username: "vendor_b", Caption: "Just the beach", Likes: 50},
			{ID: "c", Username: "vendor_c", Caption: "wedding vibes, no marker", Likes: 20},
		},
	}
	client := testInstagramClient(t, api)

	result, err := client.DiscoverLocation(context.Background(), "Bondi", 10, "#wedding")
	if err != nil {
		t.Fatalf("DiscoverLocation returned error: %v", err)
	}

	if result.LocationID != "loc-1" || result.LocationName != "Bondi Beach" {
		t.Errorf("picked location %s/%s, want first search result", result.LocationID, result.LocationName)
	}
	if api.locationAmount != 30 {
		t.Errorf("fetch amount = %d, want limit*3 when filtering", api.locationAmount)
	}

	// The filter matches captions with or without the marker, any case.
	var ids []string
	for _, p := range result.Posts {
		ids = append(ids, p.ID)
	}
	want := []string{"c", "a"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("filtered posts = %v, want %v (engagement order)", ids, want)
	}
	for _, p := range result.Posts {
		if p.Location != "Bondi Beach" {
			t.Errorf("post %s location = %q, want resolved location name", p.ID, p.Location)
		}
	}
	if result.HashtagFilter != "#wedding" {
		t.Errorf("HashtagFilter = %q, want echoed filter", result.HashtagFilter)
	}
}

func TestDiscoverLocationStopsAtLimit(t *testing.T) {
	api := &fakeContentAPI{
		locations: []models.InstagramLocation{{ID: "loc-1", Name: "Bondi Beach"}},
		locationPosts: []models.InstagramPost{
			post("a", "vendor_a", 1, 0),
			post("b", "vendor_b", 9, 0),
			post("c", "vendor_c", 5, 0),
		},
	}
	client := testInstagramClient(t, api)

	result, err := client.DiscoverLocation(context.Background(), "Bondi", 2, "")
	if err != nil {
		t.Fatalf("DiscoverLocation returned error: %v", err)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(result.Posts))
	}
	// Collection stops at the limit, then sorts what was kept.
	if result.Posts[0].ID != "b" || result.Posts[1].ID != "a" {
		t.Errorf("posts = %s,%s, want b,a", result.Posts[0].ID, result.Posts[1].ID)
	}
	if api.locationAmount != 2 {
		t.Errorf("fetch amount = %d, want limit without a filter", api.locationAmount)
	}
}

func TestMonitorUserSkipsOldPosts(t *testing.T) {
	lastCheck := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeContentAPI{
		userPosts: []models.InstagramPost{
			{ID: "new", Username: "venue_x", PostedAt: lastCheck.Add(24 * time.Hour)},
			{ID: "old", Username: "venue_x", PostedAt: lastCheck.Add(-24 * time.Hour)},
		},
	}
	client := testInstagramClient(t, api)

	result, err := client.MonitorUser(context.Background(), "venue_x", 12, lastCheck)
	if err != nil {
		t.Fatalf("MonitorUser returned error: %v", err)
	}
	if result.TotalPosts != 1 || result.Posts[0].ID != "new" {
		t.Errorf("posts = %+v, want only the post newer than the last check", result.Posts)
	}
}

func TestMonitorUserZeroTimeKeepsAll(t *testing.T) {
	api := &fakeContentAPI{
		userPosts: []models.InstagramPost{
			{ID: "a", PostedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "b", PostedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}
	client := testInstagramClient(t, api)

	result, err := client.MonitorUser(context.Background(), "venue_x", 12, time.Time{})
	if err != nil {
		t.Fatalf("MonitorUser returned error: %v", err)
	}
	if result.TotalPosts != 2 {
		t.Errorf("TotalPosts = %d, want 2 with no previous check", result.TotalPosts)
	}
}

func TestEnsureLoginCachesSession(t *testing.T) {
	api := &fakeContentAPI{}
	sessionPath := filepath.Join(t.TempDir(), "session.json")
	client := newInstagramClientWithAPI(api, "tester", "secret", sessionPath)

	if _, err := client.DiscoverHashtag(context.Background(), "weddings", 5); err != nil {
		t.Fatalf("DiscoverHashtag returned error: %v", err)
	}
	if api.logins != 1 {
		t.Fatalf("logins = %d, want 1", api.logins)
	}

	// Second call on the same client reuses the in-memory session.
	if _, err := client.DiscoverHashtag(context.Background(), "weddings", 5); err != nil {
		t.Fatalf("second DiscoverHashtag returned error: %v", err)
	}
	if api.logins != 1 {
		t.Errorf("logins = %d after second call, want 1", api.logins)
	}

	// A new client over the same path loads the cached session file.
	session, err := LoadSession(sessionPath)
	if err != nil {
		t.Fatalf("LoadSession returned error: %v", err)
	}
	if session.SessionID != "sid-1" || session.Username != "tester" {
		t.Errorf("cached session = %+v, want the saved login", session)
	}

	fresh := newInstagramClientWithAPI(api, "tester", "secret", sessionPath)
	if _, err := fresh.DiscoverHashtag(context.Background(), "weddings", 5); err != nil {
		t.Fatalf("DiscoverHashtag on fresh client returned error: %v", err)
	}
	if api.logins != 2 {
		t.Errorf("logins = %d, want 2 (fresh client validates the cached session once)", api.logins)
	}
}

func TestEnsureLoginFailureSurfaces(t *testing.T) {
	api := &fakeContentAPI{loginErr: errors.New("bad credentials")}
	client := testInstagramClient(t, api)

	_, err := client.DiscoverHashtag(context.Background(), "weddings", 5)
	if err == nil || !strings.Contains(err.Error(), "login failed") {
		t.Errorf("error = %v, want wrapped login failure", err)
	}
}

func TestSessionSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	session := &InstagramSession{
		Username:  "tester",
		UserID:    "42",
		SessionID: "abc",
		CSRFToken: "token",
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	if err := session.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession returned error: %v", err)
	}
	if !reflect.DeepEqual(loaded, session) {
		t.Errorf("loaded session = %+v, want %+v", loaded, session)
	}
}

func TestCaptionContainsTag(t *testing.T) {
	tests := []struct {
		caption string
		tag     string
		want    bool
	}{
		{"Our #SydneyWedding day", "#sydneywedding", true},
		{"Our #SydneyWedding day", "sydneywedding", true},
		{"sydneywedding without marker", "#sydneywedding", true},
		{"nothing relevant", "#sydneywedding", false},
		{"", "#sydneywedding", false},
	}
	for _, tt := range tests {
		if got := captionContainsTag(tt.caption, tt.tag); got != tt.want {
			t.Errorf("captionContainsTag(%q, %q) = %t, want %t", tt.caption, tt.tag, got, tt.want)
		}
	}
}
