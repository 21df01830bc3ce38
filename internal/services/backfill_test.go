package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"australian-wedding-vendor-scraper/internal/models"
)

type recordedUpdate struct {
	id     string
	fields map[string]interface{}
}

type fakeStore struct {
	discoveries  []models.DiscoveredListing
	queryErr     error
	lastQuery    DiscoveryQuery
	updates      []recordedUpdate
	updateErrs   map[string][]error
	statusCounts map[string]int
	listingCount int
}

func (f *fakeStore) QueryDiscoveries(ctx context.Context, q DiscoveryQuery) ([]models.DiscoveredListing, error) {
	f.lastQuery = q
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.discoveries, nil
}

func (f *fakeStore) UpdateDiscovery(ctx context.Context, id string, fields map[string]interface{}) error {
	f.updates = append(f.updates, recordedUpdate{id: id, fields: fields})
	if errs := f.updateErrs[id]; len(errs) > 0 {
		err := errs[0]
		f.updateErrs[id] = errs[1:]
		return err
	}
	return nil
}

func (f *fakeStore) StatusCounts(ctx context.Context) (map[string]int, error) {
	if f.statusCounts == nil {
		return map[string]int{}, nil
	}
	return f.statusCounts, nil
}

func (f *fakeStore) CountListings(ctx context.Context) (int, error) {
	return f.listingCount, nil
}

type fakeResearcher struct {
	requests []EnrichmentRequest
	results  map[string]*EnrichmentResult
	onCall   func(n int)
}

func (f *fakeResearcher) Research(ctx context.Context, req EnrichmentRequest) *EnrichmentResult {
	f.requests = append(f.requests, req)
	if f.onCall != nil {
		f.onCall(len(f.requests))
	}
	if r, ok := f.results[req.VenueName]; ok {
		return r
	}
	return &EnrichmentResult{Success: true, ListingID: "listing-" + req.VenueName}
}

func pendingDiscovery(id, name string) models.DiscoveredListing {
	return models.DiscoveredListing{
		ID:       id,
		Name:     name,
		Location: "Somewhere",
		City:     "Sydney",
		State:    "NSW",
		Status:   models.StatusPendingResearch,
	}
}

func TestBackfillCountsPartitionProcessed(t *testing.T) {
	store := &fakeStore{
		discoveries: []models.DiscoveredListing{
			pendingDiscovery("d1", "Alpha"),
			pendingDiscovery("d2", "Beta"),
			pendingDiscovery("d3", "Gamma"),
		},
	}
	researcher := &fakeResearcher{
		results: map[string]*EnrichmentResult{
			"Beta": {Success: false, Reason: "research failed"},
		},
	}

	summary, err := NewBackfillOrchestrator(store, researcher, 0, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Processed != 3 {
		t.Errorf("Processed = %d, want 3", summary.Processed)
	}
	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("Succeeded/Failed = %d/%d, want 2/1", summary.Succeeded, summary.Failed)
	}
	if summary.Succeeded+summary.Failed != summary.Processed {
		t.Errorf("Succeeded+Failed = %d, want Processed = %d", summary.Succeeded+summary.Failed, summary.Processed)
	}
}

func TestBackfillQueriesPendingByEngagement(t *testing.T) {
	store := &fakeStore{}
	_, err := NewBackfillOrchestrator(store, &fakeResearcher{}, 25, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	q := store.lastQuery
	if q.Status != models.StatusPendingResearch {
		t.Errorf("query status = %q, want %q", q.Status, models.StatusPendingResearch)
	}
	if q.OrderBy != "engagement_score" || !q.Descending {
		t.Errorf("query order = %q desc=%t, want engagement_score desc", q.OrderBy, q.Descending)
	}
	if q.Limit != 25 {
		t.Errorf("query limit = %d, want 25", q.Limit)
	}
}

func TestBackfillEmptyWorklist(t *testing.T) {
	store := &fakeStore{}
	researcher := &fakeResearcher{}

	summary, err := NewBackfillOrchestrator(store, researcher, 0, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Processed != 0 || summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("summary = %+v, want zero counts", summary)
	}
	if len(store.updates) != 0 {
		t.Errorf("store received %d updates, want 0", len(store.updates))
	}
	if len(researcher.requests) != 0 {
		t.Errorf("researcher received %d requests, want 0", len(researcher.requests))
	}
}

func TestBackfillFetchErrorAbortsRun(t *testing.T) {
	queryErr := errors.New("store unavailable")
	store := &fakeStore{queryErr: queryErr}

	summary, err := NewBackfillOrchestrator(store, &fakeResearcher{}, 0, 0).Run(context.Background())
	if err == nil {
		t.Fatal("Run returned nil error, want fetch failure")
	}
	if !errors.Is(err, queryErr) {
		t.Errorf("error %v does not wrap %v", err, queryErr)
	}
	if summary != nil {
		t.Errorf("summary = %+v, want nil on fetch failure", summary)
	}
}

func TestBackfillSuccessRecordsTerminalStatus(t *testing.T) {
	store := &fakeStore{discoveries: []models.DiscoveredListing{pendingDiscovery("d1", "Alpha")}}
	researcher := &fakeResearcher{
		results: map[string]*EnrichmentResult{
			"Alpha": {Success: true, ListingID: "lst-42", PhotoCount: 3},
		},
	}

	if _, err := NewBackfillOrchestrator(store, researcher, 0, 0).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("store received %d updates, want 1", len(store.updates))
	}
	u := store.updates[0]
	if u.id != "d1" {
		t.Errorf("updated id = %q, want d1", u.id)
	}
	if u.fields["status"] != models.StatusResearched {
		t.Errorf("status = %v, want %q", u.fields["status"], models.StatusResearched)
	}
	if u.fields["listing_id"] != "lst-42" {
		t.Errorf("listing_id = %v, want lst-42", u.fields["listing_id"])
	}
	if _, ok := u.fields["researched_at"]; !ok {
		t.Error("researched_at not set on success update")
	}
}

func TestBackfillFailureMarksResearchFailed(t *testing.T) {
	store := &fakeStore{discoveries: []models.DiscoveredListing{pendingDiscovery("d1", "Alpha")}}
	researcher := &fakeResearcher{
		results: map[string]*EnrichmentResult{
			"Alpha": {Success: false, Reason: "rate limited"},
		},
	}

	summary, err := NewBackfillOrchestrator(store, researcher, 0, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed != 1 || summary.Succeeded != 0 {
		t.Errorf("Succeeded/Failed = %d/%d, want 0/1", summary.Succeeded, summary.Failed)
	}

	if len(store.updates) != 1 {
		t.Fatalf("store received %d updates, want 1", len(store.updates))
	}
	if got := store.updates[0].fields["status"]; got != models.StatusResearchFailed {
		t.Errorf("status = %v, want %q", got, models.StatusResearchFailed)
	}
}

func TestBackfillSuccessUpdateFailureCountsAsFailed(t *testing.T) {
	store := &fakeStore{
		discoveries: []models.DiscoveredListing{pendingDiscovery("d1", "Alpha")},
		updateErrs: map[string][]error{
			"d1": {errors.New("write timeout")},
		},
	}

	summary, err := NewBackfillOrchestrator(store, &fakeResearcher{}, 0, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Succeeded != 0 || summary.Failed != 1 {
		t.Errorf("Succeeded/Failed = %d/%d, want 0/1 when the success write fails", summary.Succeeded, summary.Failed)
	}

	// The failed success write is followed by a best-effort failed mark.
	if len(store.updates) != 2 {
		t.Fatalf("store received %d updates, want 2", len(store.updates))
	}
	if got := store.updates[1].fields["status"]; got != models.StatusResearchFailed {
		t.Errorf("fallback status = %v, want %q", got, models.StatusResearchFailed)
	}
}

func TestBackfillMarkFailedErrorIsSwallowed(t *testing.T) {
	store := &fakeStore{
		discoveries: []models.DiscoveredListing{
			pendingDiscovery("d1", "Alpha"),
			pendingDiscovery("d2", "Beta"),
		},
		updateErrs: map[string][]error{
			"d1": {errors.New("write timeout")},
		},
	}
	researcher := &fakeResearcher{
		results: map[string]*EnrichmentResult{
			"Alpha": {Success: false, Reason: "no data"},
		},
	}

	summary, err := NewBackfillOrchestrator(store, researcher, 0, 0).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Processed != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want both items processed despite mark failure", summary)
	}
}

func TestBackfillPlaceholdersForMissingFields(t *testing.T) {
	store := &fakeStore{
		discoveries: []models.DiscoveredListing{{ID: "d1", Status: models.StatusPendingResearch}},
	}
	researcher := &fakeResearcher{}

	if _, err := NewBackfillOrchestrator(store, researcher, 0, 0).Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(researcher.requests) != 1 {
		t.Fatalf("researcher received %d requests, want 1", len(researcher.requests))
	}
	req := researcher.requests[0]
	if req.VenueName != models.UnknownField {
		t.Errorf("VenueName = %q, want placeholder", req.VenueName)
	}
	if req.ServiceType != models.DefaultServiceType {
		t.Errorf("ServiceType = %q, want %q", req.ServiceType, models.DefaultServiceType)
	}
	if !strings.Contains(req.Location, models.UnknownField) {
		t.Errorf("Location = %q, want placeholder content", req.Location)
	}
}

func TestBackfillContextCancellation(t *testing.T) {
	store := &fakeStore{
		discoveries: []models.DiscoveredListing{
			pendingDiscovery("d1", "Alpha"),
			pendingDiscovery("d2", "Beta"),
			pendingDiscovery("d3", "Gamma"),
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	researcher := &fakeResearcher{
		onCall: func(n int) {
			if n == 1 {
				cancel()
			}
		},
	}

	summary, err := NewBackfillOrchestrator(store, researcher, 0, 0).Run(ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !summary.Interrupted {
		t.Error("summary.Interrupted = false, want true after cancellation")
	}
	if summary.Processed != 1 {
		t.Errorf("Processed = %d, want 1 (first item completes, rest skipped)", summary.Processed)
	}
}

func TestBackfillNegativeDelayUsesDefault(t *testing.T) {
	b := NewBackfillOrchestrator(&fakeStore{}, &fakeResearcher{}, 0, -1)
	if b.delay != DefaultItemDelay {
		t.Errorf("delay = %v, want %v", b.delay, DefaultItemDelay)
	}
}
