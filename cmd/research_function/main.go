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

// ResearchEvent is the deep-research request for one discovered candidate.
type ResearchEvent struct {
	VenueName    string `json:"venueName"`
	Location     string `json:"location"`
	City         string `json:"city"`
	State        string `json:"state"`
	ServiceType  string `json:"serviceType"`
	ForceRefresh bool   `json:"forceRefresh"`
}

// ListingSummary is the created-listing view returned to callers. The
// images and packages slices let callers report counts without a second
// store round trip.
type ListingSummary struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Images   []string         `json:"images"`
	Packages []models.Package `json:"packages"`
}

// ResearchResponse is the function's response envelope.
type ResearchResponse struct {
	Success bool            `json:"success"`
	Listing *ListingSummary `json:"listing,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

var (
	storeClient      *services.SupabaseClient
	perplexityClient *services.PerplexityClient
	imageArchiver    *services.ImageArchiver
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

	// Listings still work without re-hosted photos, so a missing bucket
	// config only disables archiving.
	imageArchiver, err = services.NewImageArchiver()
	if err != nil {
		log.Printf("Image archiving disabled: %v", err)
		imageArchiver = nil
	}
}

func handleRequest(ctx context.Context, event ResearchEvent) (ResearchResponse, error) {
	log.Printf("Researching: %s (%s) in %s", event.VenueName, event.ServiceType, event.Location)

	if event.VenueName == "" {
		return errorResponse(ctx, "venueName is required"), nil
	}

	// Skip vendors that are already in the directory unless the caller
	// explicitly asks for a refresh.
	if !event.ForceRefresh {
		existingID, err := storeClient.FindListingIDByName(ctx, event.VenueName, event.ServiceType)
		if err != nil {
			log.Printf("Existing-listing lookup failed: %v", err)
		} else if existingID != "" {
			log.Printf("Listing already exists: %s", existingID)
			return ResearchResponse{
				Success: true,
				Listing: &ListingSummary{ID: existingID, Title: event.VenueName, Images: []string{}, Packages: []models.Package{}},
				Message: fmt.Sprintf("Venue %q already researched", event.VenueName),
			}, nil
		}
	}

	research, err := perplexityClient.ResearchVenue(ctx, event.VenueName, event.Location, event.ServiceType)
	if err != nil {
		return errorResponse(ctx, fmt.Sprintf("research failed: %v", err)), nil
	}

	category := event.ServiceType
	if category == "" {
		category = models.DefaultServiceType
	}
	rating := research.Rating
	if rating == 0 {
		rating = 4.5
	}
	now := time.Now().UTC().Format(time.RFC3339)
	listing, err := storeClient.InsertListing(ctx, &models.Listing{
		SourceType:  "perplexity",
		Title:       research.Title,
		Description: research.Description,
		Category:    category,
		Style:       research.Style,
		LocationData: models.LocationData{
			Address:   research.Address,
			City:      research.City,
			State:     research.State,
			Postcode:  research.Postcode,
			Country:   "Australia",
			Latitude:  research.Latitude,
			Longitude: research.Longitude,
		},
		PriceData: models.PriceData{
			MinPrice:  research.MinPrice,
			MaxPrice:  research.MaxPrice,
			Currency:  "AUD",
			PriceUnit: "per event",
		},
		MinCapacity: research.MinCapacity,
		MaxCapacity: research.MaxCapacity,
		Amenities:   research.Amenities,
		Rating:      rating,
		ReviewCount: research.ReviewCount,
		Website:     research.Website,
		Phone:       research.Phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return errorResponse(ctx, fmt.Sprintf("failed to save listing: %v", err)), nil
	}

	imageURLs := archiveImages(ctx, listing.ID, research.ImageURLs)
	saveMedia(ctx, listing.ID, imageURLs)
	savePackages(ctx, listing.ID, research.Packages)

	logSync(ctx, "success", "", map[string]interface{}{
		"venue_id":       listing.ID,
		"venue_name":     research.Title,
		"images_found":   len(imageURLs),
		"packages_found": len(research.Packages),
	})

	log.Printf("Created listing %s with %d images, %d packages", listing.ID, len(imageURLs), len(research.Packages))

	return ResearchResponse{
		Success: true,
		Listing: &ListingSummary{
			ID:       listing.ID,
			Title:    research.Title,
			Images:   imageURLs,
			Packages: research.Packages,
		},
		Message: fmt.Sprintf("Venue %q successfully researched and added with %d images", research.Title, len(imageURLs)),
	}, nil
}

// archiveImages re-hosts research photos when archiving is enabled,
// falling back to the source URLs otherwise.
func archiveImages(ctx context.Context, listingID string, sourceURLs []string) []string {
	if imageArchiver == nil || len(sourceURLs) == 0 {
		return sourceURLs
	}
	archived := imageArchiver.ArchiveListingImages(ctx, listingID, sourceURLs)
	if len(archived) == 0 {
		return sourceURLs
	}
	urls := make([]string, 0, len(archived))
	for _, image := range archived {
		urls = append(urls, image.PublicURL)
	}
	return urls
}

func saveMedia(ctx context.Context, listingID string, imageURLs []string) {
	media := make([]models.ListingMedia, 0, len(imageURLs))
	for i, url := range imageURLs {
		media = append(media, models.ListingMedia{
			ListingID: listingID,
			MediaType: "image",
			URL:       url,
			Source:    "perplexity",
			Order:     i,
		})
	}
	if err := storeClient.InsertListingMedia(ctx, media); err != nil {
		log.Printf("Failed to save listing media: %v", err)
	}
}

func savePackages(ctx context.Context, listingID string, packages []models.Package) {
	for i := range packages {
		packages[i].ListingID = listingID
	}
	if err := storeClient.InsertPackages(ctx, packages); err != nil {
		log.Printf("Failed to save packages: %v", err)
	}
}

func errorResponse(ctx context.Context, message string) ResearchResponse {
	log.Printf("Research error: %s", message)
	logSync(ctx, "error", message, nil)
	return ResearchResponse{Success: false, Error: message}
}

func logSync(ctx context.Context, status, errMsg string, metadata map[string]interface{}) {
	entry := models.NewSyncLog("perplexity_deep_research", status, 1)
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
