package services

import (
	"context"
	"log"
	"sort"
	"time"

	"australian-wedding-vendor-scraper/internal/models"
)

const (
	// DefaultTaskDelay paces individual discovery tasks.
	DefaultTaskDelay = 3 * time.Second
	// DefaultTierPause separates priority tiers.
	DefaultTierPause = 30 * time.Second
)

// CampaignStep is one entry in a campaign plan: either a discovery task or
// a pause between priority tiers. Exactly one field is set.
type CampaignStep struct {
	Task  *models.DiscoveryTask
	Pause time.Duration
}

// IsPause reports whether the step is an inter-tier pause marker.
func (s CampaignStep) IsPause() bool {
	return s.Task == nil
}

// CampaignPlanner builds the ordered worklist for the comprehensive
// multi-city, multi-category discovery campaign from the static geography
// and category tables.
type CampaignPlanner struct {
	cities   []models.CityTarget
	services []models.ServiceTarget
}

// NewCampaignPlanner creates a planner over the built-in Australian tables.
func NewCampaignPlanner() *CampaignPlanner {
	return NewCampaignPlannerWithTargets(models.AustralianCities(), models.WeddingServiceTypes())
}

// NewCampaignPlannerWithTargets creates a planner over explicit tables.
func NewCampaignPlannerWithTargets(cities []models.CityTarget, services []models.ServiceTarget) *CampaignPlanner {
	return &CampaignPlanner{cities: cities, services: services}
}

// Plan produces the full ordered step sequence: tiers ascending, cities in
// declaration order within a tier, and for each city a venue task followed
// by one task per category whose tier is within the city's tier, in
// category declaration order. A pause marker separates consecutive tiers.
func (p *CampaignPlanner) Plan() []CampaignStep {
	var steps []CampaignStep

	tiers := p.tiers()
	for tierIdx, tier := range tiers {
		for _, city := range p.cities {
			if city.Priority != tier {
				continue
			}

			steps = append(steps, CampaignStep{Task: &models.DiscoveryTask{
				City:     city.City,
				State:    city.State,
				Priority: tier,
			}})

			for _, service := range p.services {
				if service.Type == models.DefaultServiceType {
					// Venues are planned separately above.
					continue
				}
				if service.Priority > tier {
					continue
				}
				steps = append(steps, CampaignStep{Task: &models.DiscoveryTask{
					City:         city.City,
					State:        city.State,
					ServiceType:  service.Type,
					ServiceLabel: service.Label,
					Priority:     tier,
				}})
			}
		}

		if tierIdx < len(tiers)-1 {
			steps = append(steps, CampaignStep{Pause: DefaultTierPause})
		}
	}

	return steps
}

// TaskCount returns the number of discovery tasks in the plan, excluding
// pause markers.
func (p *CampaignPlanner) TaskCount() int {
	count := 0
	for _, step := range p.Plan() {
		if !step.IsPause() {
			count++
		}
	}
	return count
}

// tiers returns the distinct city priority tiers in ascending order.
func (p *CampaignPlanner) tiers() []int {
	seen := make(map[int]bool)
	var tiers []int
	for _, city := range p.cities {
		if !seen[city.Priority] {
			seen[city.Priority] = true
			tiers = append(tiers, city.Priority)
		}
	}
	sort.Ints(tiers)
	return tiers
}

// GeographyDiscoverer is the discovery surface the campaign runner drives.
type GeographyDiscoverer interface {
	DiscoverVenues(ctx context.Context, city, state string) DiscoveryResult
	DiscoverServices(ctx context.Context, city, state, serviceType, serviceLabel string) DiscoveryResult
}

// CampaignSummary aggregates the outcome of one campaign run.
type CampaignSummary struct {
	TasksRun         int
	TotalDiscoveries int
	Elapsed          time.Duration
	Interrupted      bool
	PendingResearch  int
}

// CampaignRunner consumes a campaign plan sequentially, driving the
// geography discovery operations with fixed pacing. Tasks are never run
// concurrently; the remote functions share a rate limit.
type CampaignRunner struct {
	planner    *CampaignPlanner
	discoverer GeographyDiscoverer
	store      DiscoveryStore
	taskDelay  time.Duration
}

// NewCampaignRunner creates a runner with the default per-task pacing.
func NewCampaignRunner(planner *CampaignPlanner, discoverer GeographyDiscoverer, store DiscoveryStore) *CampaignRunner {
	return &CampaignRunner{
		planner:    planner,
		discoverer: discoverer,
		store:      store,
		taskDelay:  DefaultTaskDelay,
	}
}

// Run executes the campaign plan. Individual task failures are logged and
// skipped; context cancellation ends the run cleanly with partial totals.
func (r *CampaignRunner) Run(ctx context.Context) (*CampaignSummary, error) {
	summary := &CampaignSummary{}
	startTime := time.Now()

	currentCity := ""
	for _, step := range r.planner.Plan() {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		if step.IsPause() {
			log.Printf("Tier complete. Pausing %s before next tier...", step.Pause)
			if !sleepCtx(ctx, step.Pause) {
				summary.Interrupted = true
				break
			}
			continue
		}

		task := step.Task
		if key := task.City + ", " + task.State; key != currentCity {
			currentCity = key
			log.Printf("== %s ==", currentCity)
		}

		var result DiscoveryResult
		if task.IsVenueDiscovery() {
			log.Printf("   Discovering venues in %s, %s...", task.City, task.State)
			result = r.discoverer.DiscoverVenues(ctx, task.City, task.State)
		} else {
			log.Printf("   Discovering %ss in %s...", task.ServiceLabel, task.City)
			result = r.discoverer.DiscoverServices(ctx, task.City, task.State, task.ServiceType, task.ServiceLabel)
		}
		summary.TasksRun++

		if result.Success {
			log.Printf("      Found %d new discoveries", result.NewDiscoveries)
			summary.TotalDiscoveries += result.NewDiscoveries
		} else {
			log.Printf("      Discovery failed: %s", result.Error)
		}

		if !sleepCtx(ctx, r.taskDelay) {
			summary.Interrupted = true
			break
		}
	}

	summary.Elapsed = time.Since(startTime)
	r.logSummary(ctx, summary)
	return summary, nil
}

// logSummary reports campaign totals and the resulting research queue
// depth, with the suggested backfill limit.
func (r *CampaignRunner) logSummary(ctx context.Context, summary *CampaignSummary) {
	log.Printf("================================================================")
	log.Printf("Discovery Complete!")
	log.Printf("================================================================")
	log.Printf("Tasks Run: %d", summary.TasksRun)
	log.Printf("Total Discoveries: %d", summary.TotalDiscoveries)
	log.Printf("Time Elapsed: %ds (%dmin)", int(summary.Elapsed.Seconds()), int(summary.Elapsed.Minutes()))

	counts, err := r.store.StatusCounts(ctx)
	if err != nil {
		log.Printf("Error checking queue: %v", err)
		return
	}
	summary.PendingResearch = counts[models.StatusPendingResearch]
	log.Printf("Pending Research: %d discoveries", summary.PendingResearch)
	log.Printf("Run the enrichment backfill to process these:")
	log.Printf("   backfill --limit %d", summary.PendingResearch)
}

// sleepCtx waits for the duration unless the context ends first; it
// reports whether the full wait completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
