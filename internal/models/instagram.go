package models

import "time"

// InstagramPost is one content item returned by the Instagram integration.
type InstagramPost struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name,omitempty"`
	IsBusiness bool      `json:"is_business,omitempty"`
	Caption    string    `json:"caption"`
	PostedAt   time.Time `json:"posted_at"`
	Likes      int       `json:"likes"`
	Comments   int       `json:"comments"`
	ImageURLs  []string  `json:"image_urls"`
	Location   string    `json:"location,omitempty"`
	IsVideo    bool      `json:"is_video,omitempty"`
}

// EngagementScore ranks a post by raw audience response.
func (p InstagramPost) EngagementScore() int {
	return p.Likes + p.Comments
}

// InstagramLocation is one result of a location lookup.
type InstagramLocation struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}
