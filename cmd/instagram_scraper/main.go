package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"australian-wedding-vendor-scraper/internal/services"
)

const (
	defaultMonitorLimit  = 12
	defaultDiscoverLimit = 50
)

// ScraperEvent selects one Instagram operation and its parameters.
type ScraperEvent struct {
	Action          string `json:"action"`
	Username        string `json:"username"`
	Hashtag         string `json:"hashtag"`
	LocationName    string `json:"location_name"`
	Limit           int    `json:"limit"`
	HashtagFilter   string `json:"hashtag_filter"`
	LastMonitoredAt string `json:"last_monitored_at"`
}

// ScraperResponse is an HTTP-shaped envelope so the function can sit
// behind a function URL.
type ScraperResponse struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

var instagramClient *services.InstagramClient

func init() {
	var err error
	instagramClient, err = services.NewInstagramClient()
	if err != nil {
		log.Fatalf("Failed to create Instagram client: %v", err)
	}
}

func handleRequest(ctx context.Context, event ScraperEvent) (ScraperResponse, error) {
	log.Printf("Instagram scraper action: %s", event.Action)

	switch event.Action {
	case "monitor_user":
		if event.Username == "" {
			return respond(400, map[string]interface{}{"success": false, "error": "username is required for monitor_user"}), nil
		}
		limit := event.Limit
		if limit <= 0 {
			limit = defaultMonitorLimit
		}
		since := parseLastMonitored(event.LastMonitoredAt)
		result, err := instagramClient.MonitorUser(ctx, event.Username, limit, since)
		if err != nil {
			return operationError(err), nil
		}
		return respond(200, result), nil

	case "discover_hashtag":
		if event.Hashtag == "" {
			return respond(400, map[string]interface{}{"success": false, "error": "hashtag is required for discover_hashtag"}), nil
		}
		limit := event.Limit
		if limit <= 0 {
			limit = defaultDiscoverLimit
		}
		result, err := instagramClient.DiscoverHashtag(ctx, event.Hashtag, limit)
		if err != nil {
			return operationError(err), nil
		}
		return respond(200, result), nil

	case "discover_location":
		if event.LocationName == "" {
			return respond(400, map[string]interface{}{"success": false, "error": "location_name is required for discover_location"}), nil
		}
		limit := event.Limit
		if limit <= 0 {
			limit = defaultDiscoverLimit
		}
		result, err := instagramClient.DiscoverLocation(ctx, event.LocationName, limit, event.HashtagFilter)
		if err != nil {
			return operationError(err), nil
		}
		return respond(200, result), nil

	case "":
		return respond(400, map[string]interface{}{"success": false, "error": "action is required"}), nil

	default:
		return respond(400, map[string]interface{}{"success": false, "error": "unknown action: " + event.Action}), nil
	}
}

func parseLastMonitored(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Printf("Ignoring unparseable last_monitored_at %q: %v", value, err)
		return time.Time{}
	}
	return t
}

// operationError reports a failed Instagram call. Rate limits and missing
// locations are expected operational outcomes, so they come back as a 200
// with success=false rather than an invocation error.
func operationError(err error) ScraperResponse {
	log.Printf("Instagram operation failed: %v", err)
	return respond(200, map[string]interface{}{"success": false, "error": err.Error()})
}

func respond(statusCode int, payload interface{}) ScraperResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal response body: %v", err)
		body = []byte(`{"success":false,"error":"internal serialization error"}`)
		statusCode = 500
	}
	return ScraperResponse{
		StatusCode: statusCode,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func main() {
	lambda.Start(handleRequest)
}
