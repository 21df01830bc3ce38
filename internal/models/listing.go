package models

// LocationData is the embedded address block on a listing.
type LocationData struct {
	Address   string  `json:"address"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Postcode  string  `json:"postcode,omitempty"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PriceData is the embedded price block on a listing.
type PriceData struct {
	MinPrice  int    `json:"min_price"`
	MaxPrice  int    `json:"max_price"`
	Currency  string `json:"currency"`
	PriceUnit string `json:"price_unit"`
}

// Listing is a fully researched directory entry created from a discovery.
type Listing struct {
	ID           string       `json:"id,omitempty"`
	SourceType   string       `json:"source_type"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Category     string       `json:"category"`
	Style        string       `json:"style,omitempty"`
	LocationData LocationData `json:"location_data"`
	PriceData    PriceData    `json:"price_data"`
	MinCapacity  int          `json:"min_capacity,omitempty"`
	MaxCapacity  int          `json:"max_capacity,omitempty"`
	Amenities    []string     `json:"amenities,omitempty"`
	Rating       float64      `json:"rating,omitempty"`
	ReviewCount  int          `json:"review_count,omitempty"`
	Website      string       `json:"website,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	CreatedAt    string       `json:"created_at,omitempty"`
	UpdatedAt    string       `json:"updated_at,omitempty"`
}

// ListingMedia is one image row attached to a listing.
type ListingMedia struct {
	ListingID string `json:"listing_id"`
	MediaType string `json:"media_type"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Order     int    `json:"order"`
}

// Package is one wedding package offered by a vendor.
type Package struct {
	ListingID   string   `json:"listing_id,omitempty"`
	Name        string   `json:"name"`
	Price       int      `json:"price"`
	Description string   `json:"description"`
	Inclusions  []string `json:"inclusions"`
}

// ListingTag links a tag name to a listing.
type ListingTag struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

// VenueResearchData is the structured payload returned by deep research for
// a single venue or vendor.
type VenueResearchData struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Style       string       `json:"style"`
	Address     string       `json:"address"`
	City        string       `json:"city"`
	State       string       `json:"state"`
	Postcode    string       `json:"postcode,omitempty"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	MinPrice    int          `json:"min_price"`
	MaxPrice    int          `json:"max_price"`
	MinCapacity int          `json:"min_capacity"`
	MaxCapacity int          `json:"max_capacity"`
	Amenities   []string     `json:"amenities"`
	Tags        []ListingTag `json:"tags"`
	Packages    []Package    `json:"packages,omitempty"`
	ImageURLs   []string     `json:"image_urls"`
	Website     string       `json:"website,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Rating      float64      `json:"rating,omitempty"`
	ReviewCount int          `json:"review_count,omitempty"`
}
