package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"australian-wedding-vendor-scraper/internal/models"
	"australian-wedding-vendor-scraper/internal/services"
)

// DiscoveryEvent asks for trending venues (no serviceType) or trending
// vendors of one service category in a city.
type DiscoveryEvent struct {
	City           string `json:"city"`
	State          string `json:"state"`
	ServiceType    string `json:"serviceType"`
	ServiceLabel   string `json:"serviceLabel"`
	ExpandedSearch bool   `json:"expandedSearch"`
}

// DiscoveryResponse is the function's response envelope.
type DiscoveryResponse struct {
	Success         bool   `json:"success"`
	NewDiscoveries  int    `json:"new_discoveries"`
	TotalDiscovered int    `json:"total_discovered"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
}

var (
	storeClient      *services.SupabaseClient
	perplexityClient *services.PerplexityClient
)

func init() {
	var err error
	storeClient, err = services.NewSupabaseClient()
	if err != nil {
		log.Fatalf("Failed to create record store client: %v", err)
	}
	perplexityClient, err = services.NewPerplexityClient()
	if err != nil {
		log.Fatalf("Failed to create Perplexity client: %v", err)
	}
}

func handleRequest(ctx context.Context, event DiscoveryEvent) (DiscoveryResponse, error) {
	if event.City == "" || event.State == "" {
		return errorResponse(ctx, event, "city and state are required"), nil
	}

	var (
		discovered []models.DiscoveredListing
		err        error
	)
	if event.ServiceType == "" || event.ServiceType == models.DefaultServiceType {
		log.Printf("Discovering trending venues in %s, %s (expanded=%t)", event.City, event.State, event.ExpandedSearch)
		discovered, err = perplexityClient.DiscoverTrendingVenues(ctx, event.City, event.State)
	} else {
		log.Printf("Discovering trending %s in %s, %s", event.ServiceLabel, event.City, event.State)
		discovered, err = perplexityClient.DiscoverTrendingServices(ctx, event.City, event.State, event.ServiceType, event.ServiceLabel)
	}
	if err != nil {
		return errorResponse(ctx, event, fmt.Sprintf("discovery failed: %v", err)), nil
	}

	fresh := filterKnown(ctx, discovered)
	now := time.Now().UTC().Format(time.RFC3339)
	for i := range fresh {
		fresh[i].Status = models.StatusPendingResearch
		fresh[i].DiscoveredAt = now
	}
	if err := storeClient.InsertDiscoveries(ctx, fresh); err != nil {
		return errorResponse(ctx, event, fmt.Sprintf("failed to save discoveries: %v", err)), nil
	}

	logSync(ctx, "success", "", len(fresh), map[string]interface{}{
		"city":             event.City,
		"state":            event.State,
		"service_type":     event.ServiceType,
		"total_discovered": len(discovered),
		"new_discoveries":  len(fresh),
	})

	log.Printf("Discovery complete: %d found, %d new", len(discovered), len(fresh))

	return DiscoveryResponse{
		Success:         true,
		NewDiscoveries:  len(fresh),
		TotalDiscovered: len(discovered),
		Message:         fmt.Sprintf("Found %d candidates in %s, %d new", len(discovered), event.City, len(fresh)),
	}, nil
}

// filterKnown drops candidates that already have a directory listing, so
// repeated campaign runs do not refill the research queue with duplicates.
func filterKnown(ctx context.Context, discovered []models.DiscoveredListing) []models.DiscoveredListing {
	fresh := make([]models.DiscoveredListing, 0, len(discovered))
	for _, d := range discovered {
		existingID, err := storeClient.FindListingIDByName(ctx, d.Name, d.EffectiveServiceType())
		if err != nil {
			log.Printf("Existing-listing lookup failed for %q, keeping candidate: %v", d.Name, err)
		} else if existingID != "" {
			log.Printf("Skipping %q: listing %s already exists", d.Name, existingID)
			continue
		}
		fresh = append(fresh, d)
	}
	return fresh
}

func errorResponse(ctx context.Context, event DiscoveryEvent, message string) DiscoveryResponse {
	log.Printf("Discovery error: %s", message)
	logSync(ctx, "error", message, 0, map[string]interface{}{
		"city":         event.City,
		"state":        event.State,
		"service_type": event.ServiceType,
	})
	return DiscoveryResponse{Success: false, Error: message}
}

func logSync(ctx context.Context, status, errMsg string, records int, metadata map[string]interface{}) {
	entry := models.NewSyncLog("perplexity_discovery", status, records)
	entry.ID = uuid.NewString()
	entry.Errors = errMsg
	entry.Metadata = metadata
	if err := storeClient.InsertSyncLog(ctx, entry); err != nil {
		log.Printf("Failed to write sync log: %v", err)
	}
}

func main() {
	lambda.Start(handleRequest)
}
