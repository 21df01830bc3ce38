package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"australian-wedding-vendor-scraper/internal/models"
)

// DefaultItemDelay is the pacing delay between worklist items. The remote
// research function shares a rate limit, so items are processed one at a
// time with a cooperative sleep in between.
const DefaultItemDelay = 5 * time.Second

// progressInterval controls how often a progress snapshot is emitted.
const progressInterval = 10

// DiscoveryStore is the record-store surface the orchestrator depends on.
type DiscoveryStore interface {
	QueryDiscoveries(ctx context.Context, q DiscoveryQuery) ([]models.DiscoveredListing, error)
	UpdateDiscovery(ctx context.Context, id string, fields map[string]interface{}) error
	StatusCounts(ctx context.Context) (map[string]int, error)
	CountListings(ctx context.Context) (int, error)
}

// VenueResearcher runs the deep-research operation for one candidate.
type VenueResearcher interface {
	Research(ctx context.Context, req EnrichmentRequest) *EnrichmentResult
}

// RunSummary aggregates the outcome of one backfill pass.
type RunSummary struct {
	Processed     int
	Succeeded     int
	Failed        int
	Elapsed       time.Duration
	Interrupted   bool
	StatusCounts  map[string]int
	TotalListings int
}

// BackfillOrchestrator drives pending discoveries through deep research,
// one at a time, recording a terminal status per item. The worklist is a
// snapshot taken once at the start of a run; items discovered mid-run wait
// for the next pass.
type BackfillOrchestrator struct {
	store      DiscoveryStore
	researcher VenueResearcher
	limit      int
	delay      time.Duration
}

// NewBackfillOrchestrator creates an orchestrator. A zero limit processes
// the whole queue; a negative delay falls back to the default pacing.
func NewBackfillOrchestrator(store DiscoveryStore, researcher VenueResearcher, limit int, delay time.Duration) *BackfillOrchestrator {
	if delay < 0 {
		delay = DefaultItemDelay
	}
	return &BackfillOrchestrator{
		store:      store,
		researcher: researcher,
		limit:      limit,
		delay:      delay,
	}
}

// Run executes one backfill pass. Per-item failures never abort the run;
// only a failed worklist fetch does. Context cancellation between items
// ends the run cleanly with the partial summary.
func (b *BackfillOrchestrator) Run(ctx context.Context) (*RunSummary, error) {
	log.Printf("Fetching pending discoveries...")

	discoveries, err := b.store.QueryDiscoveries(ctx, DiscoveryQuery{
		Status:     models.StatusPendingResearch,
		OrderBy:    "engagement_score",
		Descending: true,
		Limit:      b.limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending discoveries: %w", err)
	}

	summary := &RunSummary{}
	startTime := time.Now()

	if len(discoveries) == 0 {
		log.Printf("No pending discoveries found")
		return summary, nil
	}
	log.Printf("Found %d pending discoveries", len(discoveries))

	for i, discovery := range discoveries {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		summary.Processed++
		b.processDiscovery(ctx, &discovery, summary, len(discoveries))

		if summary.Processed%progressInterval == 0 || summary.Processed == len(discoveries) {
			b.logProgress(summary, len(discoveries), startTime)
		}

		// Cooperative pacing before the next item.
		if i < len(discoveries)-1 && b.delay > 0 {
			log.Printf("   Waiting %s...", b.delay)
			select {
			case <-ctx.Done():
				summary.Interrupted = true
			case <-time.After(b.delay):
			}
			if summary.Interrupted {
				break
			}
		}
	}

	summary.Elapsed = time.Since(startTime)
	b.logFinalSummary(ctx, summary)
	return summary, nil
}

// processDiscovery runs research for one candidate and records exactly one
// terminal status transition for it.
func (b *BackfillOrchestrator) processDiscovery(ctx context.Context, discovery *models.DiscoveredListing, summary *RunSummary, total int) {
	name := discovery.DisplayName()
	location := discovery.DisplayLocation()
	city := discovery.DisplayCity()
	serviceType := discovery.EffectiveServiceType()

	log.Printf("[%d/%d] Researching: %s", summary.Processed, total, name)
	log.Printf("   Location: %s, %s", location, city)
	log.Printf("   Engagement: %.0f/10", discovery.EngagementScore)
	log.Printf("   Type: %s", serviceType)

	result := b.researcher.Research(ctx, EnrichmentRequest{
		VenueName:   name,
		Location:    fmt.Sprintf("%s, %s", location, city),
		City:        city,
		State:       discovery.DisplayState(),
		ServiceType: serviceType,
	})

	if !result.Success {
		summary.Failed++
		log.Printf("   Failed: %s", result.Reason)
		b.markFailed(ctx, discovery.ID)
		return
	}

	log.Printf("   Success! Created listing: %s", result.ListingID)
	log.Printf("   Photos: %d", result.PhotoCount)
	log.Printf("   Packages: %d", result.PackageCount)

	err := b.store.UpdateDiscovery(ctx, discovery.ID, map[string]interface{}{
		"status":        models.StatusResearched,
		"listing_id":    result.ListingID,
		"researched_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		// The listing exists but the status write failed: count the item
		// as failed and best-effort mark it so the queue stays honest.
		summary.Failed++
		log.Printf("   Failed to record success for %s: %v", discovery.ID, err)
		b.markFailed(ctx, discovery.ID)
		return
	}
	summary.Succeeded++
}

// markFailed records a failed attempt. The write is best effort: its own
// failure is logged and swallowed so it can never abort the run.
func (b *BackfillOrchestrator) markFailed(ctx context.Context, id string) {
	err := b.store.UpdateDiscovery(ctx, id, map[string]interface{}{
		"status": models.StatusResearchFailed,
	})
	if err != nil {
		log.Printf("   Failed to mark discovery %s as failed: %v", id, err)
	}
}

// logProgress emits a periodic progress snapshot with throughput and ETA.
func (b *BackfillOrchestrator) logProgress(summary *RunSummary, total int, startTime time.Time) {
	elapsed := time.Since(startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(summary.Processed) / elapsed.Seconds()
	}
	remaining := total - summary.Processed
	eta := 0.0
	if rate > 0 {
		eta = float64(remaining) / rate
	}

	log.Printf("Progress Summary:")
	log.Printf("   Processed: %d/%d", summary.Processed, total)
	log.Printf("   Succeeded: %d", summary.Succeeded)
	log.Printf("   Failed: %d", summary.Failed)
	log.Printf("   Elapsed: %ds", int(elapsed.Seconds()))
	log.Printf("   Rate: %.2f/s", rate)
	if remaining > 0 {
		log.Printf("   ETA: %ds (%dmin)", int(eta), int(eta/60))
	}
}

// logFinalSummary reports run totals plus the overall queue composition and
// listing count. The secondary queries are informational; their failures
// are logged, never raised.
func (b *BackfillOrchestrator) logFinalSummary(ctx context.Context, summary *RunSummary) {
	log.Printf("============================================================")
	log.Printf("Backfill Complete!")
	log.Printf("============================================================")
	log.Printf("Total Processed: %d", summary.Processed)
	if summary.Processed > 0 {
		log.Printf("Succeeded: %d (%.0f%%)", summary.Succeeded, float64(summary.Succeeded)/float64(summary.Processed)*100)
		log.Printf("Failed: %d (%.0f%%)", summary.Failed, float64(summary.Failed)/float64(summary.Processed)*100)
	}
	log.Printf("Total Time: %ds (%dmin)", int(summary.Elapsed.Seconds()), int(summary.Elapsed.Minutes()))
	if summary.Elapsed > 0 && summary.Processed > 0 {
		log.Printf("Average Rate: %.2f/s", float64(summary.Processed)/summary.Elapsed.Seconds())
	}

	counts, err := b.store.StatusCounts(ctx)
	if err != nil {
		log.Printf("Failed to fetch queue composition: %v", err)
	} else {
		summary.StatusCounts = counts
		log.Printf("Updated Discovery Queue:")
		log.Printf("   Pending: %d", counts[models.StatusPendingResearch])
		log.Printf("   Researched: %d", counts[models.StatusResearched])
		log.Printf("   Failed: %d", counts[models.StatusResearchFailed])
	}

	total, err := b.store.CountListings(ctx)
	if err != nil {
		log.Printf("Failed to count listings: %v", err)
	} else {
		summary.TotalListings = total
		log.Printf("Total Listings in Database: %d", total)
	}
}
