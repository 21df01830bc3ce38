package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"

	"australian-wedding-vendor-scraper/internal/models"
)

const (
	perplexityBaseURL = "https://api.perplexity.ai"

	// researchModel answers single-venue research queries.
	researchModel = "sonar"
	// discoveryModel runs the broader trend sweeps.
	discoveryModel = "sonar-pro"
)

// venueResearchSchema constrains the research response to the listing shape.
const venueResearchSchema = `{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "style": {"type": "string", "enum": ["modern", "rustic", "beachfront", "garden", "industrial", "vineyard", "ballroom", "barn", "estate"]},
    "address": {"type": "string"},
    "city": {"type": "string"},
    "state": {"type": "string"},
    "postcode": {"type": "string"},
    "latitude": {"type": "number"},
    "longitude": {"type": "number"},
    "min_price": {"type": "integer"},
    "max_price": {"type": "integer"},
    "min_capacity": {"type": "integer"},
    "max_capacity": {"type": "integer"},
    "amenities": {"type": "array", "items": {"type": "string"}},
    "tags": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string"}, "category": {"type": "string"}}}},
    "packages": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string"}, "price": {"type": "integer"}, "description": {"type": "string"}, "inclusions": {"type": "array", "items": {"type": "string"}}}}},
    "image_urls": {"type": "array", "items": {"type": "string"}},
    "website": {"type": "string"},
    "phone": {"type": "string"},
    "rating": {"type": "number"},
    "review_count": {"type": "integer"}
  },
  "required": ["title", "description", "style", "address", "city", "state", "latitude", "longitude", "min_price", "max_price", "min_capacity", "max_capacity", "amenities", "tags"]
}`

// serviceDiscoverySchema constrains trend discovery to candidate records.
const serviceDiscoverySchema = `{
  "type": "object",
  "properties": {
    "discoveries": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "service_description": {"type": "string"},
          "location": {"type": "string"},
          "city": {"type": "string"},
          "state": {"type": "string"},
          "country": {"type": "string"},
          "instagram_handle": {"type": "string"},
          "instagram_posts_count": {"type": "integer"},
          "engagement_score": {"type": "number"},
          "recent_hashtags": {"type": "array", "items": {"type": "string"}},
          "why_trending": {"type": "string"},
          "sample_post_urls": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["name", "type", "location", "city", "state", "instagram_posts_count", "engagement_score", "why_trending"]
      },
      "minItems": 2,
      "maxItems": 5
    }
  },
  "required": ["discoveries"]
}`

// PerplexityClient runs deep research and trend discovery through the
// Perplexity API, which speaks the OpenAI chat-completions protocol.
type PerplexityClient struct {
	client      *openai.Client
	temperature float32
	maxTokens   int
}

// NewPerplexityClient creates a client with the API key from the environment.
func NewPerplexityClient() (*PerplexityClient, error) {
	apiKey := os.Getenv("PERPLEXITY_API_KEY")
	if apiKey == "" {
		return nil, &ConfigError{Setting: "PERPLEXITY_API_KEY"}
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = perplexityBaseURL

	return &PerplexityClient{
		client:      openai.NewClientWithConfig(config),
		temperature: 0.2,
		maxTokens:   2000,
	}, nil
}

// ResearchVenue researches one venue or vendor and returns the structured
// listing data.
func (p *PerplexityClient) ResearchVenue(ctx context.Context, venueName, location, serviceType string) (*models.VenueResearchData, error) {
	systemPrompt := `You are a wedding venue research assistant. Research the given venue and return comprehensive details in the specified JSON format. Include:
- Full venue name and detailed description
- Exact address with coordinates
- Price range in AUD for wedding packages
- Guest capacity range
- Style (modern, rustic, beachfront, garden, industrial, vineyard, ballroom, barn, estate)
- Complete list of amenities and features
- Relevant tags with categories (style, scenery, experience, amenity, feature)
- High-quality image URLs from the venue's official sources (at least 5-10 images)
- Contact information
- Rating and review count if available

Be thorough and accurate. Use real-time web search to get the most current information.`

	subject := "wedding venue"
	if serviceType != "" && serviceType != models.DefaultServiceType {
		subject = "wedding " + serviceType
	}
	userPrompt := fmt.Sprintf("Research %q %s in %s, Australia. Provide comprehensive details including pricing, capacity, amenities, high-quality photos, and contact information.", venueName, subject, location)

	content, err := p.complete(ctx, researchModel, systemPrompt, userPrompt, "venue_research", venueResearchSchema)
	if err != nil {
		return nil, err
	}

	var data models.VenueResearchData
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, fmt.Errorf("failed to parse research response: %w", err)
	}
	return &data, nil
}

// DiscoverTrendingVenues finds trending wedding venues for a city.
func (p *PerplexityClient) DiscoverTrendingVenues(ctx context.Context, city, state string) ([]models.DiscoveredListing, error) {
	return p.discover(ctx, city, state, models.DefaultServiceType, "wedding venue, wedding reception, wedding ceremony")
}

// DiscoverTrendingServices finds trending vendors of one service category
// for a city.
func (p *PerplexityClient) DiscoverTrendingServices(ctx context.Context, city, state, serviceType, serviceLabel string) ([]models.DiscoveredListing, error) {
	return p.discover(ctx, city, state, serviceType, serviceLabel)
}

func (p *PerplexityClient) discover(ctx context.Context, city, state, serviceType, keywords string) ([]models.DiscoveredListing, error) {
	systemPrompt := fmt.Sprintf(`You are a wedding industry trend analyst. Find trending wedding %ss on Instagram.

FOCUS ON:
- REAL WEDDINGS (not styled shoots)
- Recent posts (last 7-30 days)
- High engagement from couples/planners
- Wedding-specific work (not general %s work)
- Professional wedding vendors only`, serviceType, serviceType)

	userPrompt := fmt.Sprintf(`Find the top 3-5 trending wedding %ss on Instagram in %s, Australia.

Search for: %s in %s

CRITERIA:
- Posted about REAL WEDDINGS in last 30 days
- High engagement (likes, saves, shares)
- Active Instagram presence
- Professional wedding vendors
- Located in %s or serving %s area

Return vendors with RECENT wedding posts (last 7-30 days preferred).`, serviceType, city, keywords, city, city, city)

	content, err := p.complete(ctx, discoveryModel, systemPrompt, userPrompt, "service_discoveries", serviceDiscoverySchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Discoveries []struct {
			Name            string   `json:"name"`
			Type            string   `json:"type"`
			Location        string   `json:"location"`
			City            string   `json:"city"`
			State           string   `json:"state"`
			Country         string   `json:"country"`
			InstagramHandle string   `json:"instagram_handle"`
			PostsCount      int      `json:"instagram_posts_count"`
			EngagementScore float64  `json:"engagement_score"`
			RecentHashtags  []string `json:"recent_hashtags"`
			WhyTrending     string   `json:"why_trending"`
			SamplePostURLs  []string `json:"sample_post_urls"`
		} `json:"discoveries"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse discovery response: %w", err)
	}

	discoveries := make([]models.DiscoveredListing, 0, len(parsed.Discoveries))
	for _, d := range parsed.Discoveries {
		country := d.Country
		if country == "" {
			country = "Australia"
		}
		discoveryType := d.Type
		if discoveryType == "" {
			discoveryType = serviceType
		}
		discoveries = append(discoveries, models.DiscoveredListing{
			Name:            d.Name,
			ServiceType:     discoveryType,
			Location:        d.Location,
			City:            d.City,
			State:           d.State,
			Country:         country,
			InstagramHandle: d.InstagramHandle,
			PostsCount:      d.PostsCount,
			EngagementScore: d.EngagementScore,
			RecentHashtags:  d.RecentHashtags,
			WhyTrending:     d.WhyTrending,
			SamplePostURLs:  d.SamplePostURLs,
		})
	}
	return discoveries, nil
}

// complete sends one chat completion with a JSON schema response format and
// returns the cleaned message content.
func (p *PerplexityClient) complete(ctx context.Context, model, systemPrompt, userPrompt, schemaName, schema string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: json.RawMessage(schema),
				Strict: true,
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("perplexity request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from Perplexity")
	}

	return cleanJSONResponse(resp.Choices[0].Message.Content), nil
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON payloads.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}
