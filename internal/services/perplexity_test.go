package services

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewPerplexityClientRequiresAPIKey(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "")

	_, err := NewPerplexityClient()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want ConfigError", err)
	}
	if cfgErr.Setting != "PERPLEXITY_API_KEY" {
		t.Errorf("missing setting = %q, want PERPLEXITY_API_KEY", cfgErr.Setting)
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "plain json",
			content: `{"title": "The Grounds"}`,
			want:    `{"title": "The Grounds"}`,
		},
		{
			name:    "json fence",
			content: "```json\n{\"title\": \"The Grounds\"}\n```",
			want:    `{"title": "The Grounds"}`,
		},
		{
			name:    "bare fence",
			content: "```\n{\"title\": \"The Grounds\"}\n```",
			want:    `{"title": "The Grounds"}`,
		},
		{
			name:    "surrounding whitespace",
			content: "  \n{\"title\": \"The Grounds\"}\n  ",
			want:    `{"title": "The Grounds"}`,
		},
		{
			name:    "empty",
			content: "",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONResponse(tt.content); got != tt.want {
				t.Errorf("cleanJSONResponse(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestResponseSchemasAreValidJSON(t *testing.T) {
	for name, schema := range map[string]string{
		"venue_research":      venueResearchSchema,
		"service_discoveries": serviceDiscoverySchema,
	} {
		if !json.Valid([]byte(schema)) {
			t.Errorf("schema %s is not valid JSON", name)
		}
	}
}
