package models

// CityTarget is one geography entry in the comprehensive discovery campaign.
// Priority is the tier the city belongs to (1 = highest).
type CityTarget struct {
	City     string `json:"city"`
	State    string `json:"state"`
	Priority int    `json:"priority"`
}

// ServiceTarget is one wedding service category the campaign discovers.
// Label is the human search phrase passed to the discovery function.
type ServiceTarget struct {
	Type     string `json:"type"`
	Label    string `json:"label"`
	Priority int    `json:"priority"`
}

// DiscoveryTask is one planned unit of campaign work: discover venues or a
// single service category for one city. A zero ServiceType means venue
// discovery. Tasks are ephemeral and regenerated each campaign run.
type DiscoveryTask struct {
	City         string
	State        string
	ServiceType  string
	ServiceLabel string
	Priority     int
}

// IsVenueDiscovery reports whether the task is a venue-only discovery.
func (t DiscoveryTask) IsVenueDiscovery() bool {
	return t.ServiceType == ""
}

// AustralianCities returns the campaign's geography table: capital cities,
// major wedding-destination regions, and additional regional centers, with
// priority tiers. Declaration order is the processing order within a tier.
func AustralianCities() []CityTarget {
	return []CityTarget{
		// Capital cities
		{City: "Sydney", State: "NSW", Priority: 1},
		{City: "Melbourne", State: "VIC", Priority: 1},
		{City: "Brisbane", State: "QLD", Priority: 1},
		{City: "Perth", State: "WA", Priority: 1},
		{City: "Adelaide", State: "SA", Priority: 1},
		{City: "Gold Coast", State: "QLD", Priority: 1},
		{City: "Canberra", State: "ACT", Priority: 1},
		{City: "Hobart", State: "TAS", Priority: 2},
		{City: "Darwin", State: "NT", Priority: 2},

		// Major regional wedding destinations
		{City: "Byron Bay", State: "NSW", Priority: 1},
		{City: "Hunter Valley", State: "NSW", Priority: 1},
		{City: "Blue Mountains", State: "NSW", Priority: 2},
		{City: "Yarra Valley", State: "VIC", Priority: 1},
		{City: "Mornington Peninsula", State: "VIC", Priority: 1},
		{City: "Barossa Valley", State: "SA", Priority: 2},
		{City: "Margaret River", State: "WA", Priority: 2},
		{City: "Sunshine Coast", State: "QLD", Priority: 2},
		{City: "Noosa", State: "QLD", Priority: 2},
		{City: "Port Douglas", State: "QLD", Priority: 3},

		// Additional regional centers
		{City: "Newcastle", State: "NSW", Priority: 2},
		{City: "Wollongong", State: "NSW", Priority: 2},
		{City: "Geelong", State: "VIC", Priority: 2},
		{City: "Cairns", State: "QLD", Priority: 3},
		{City: "Townsville", State: "QLD", Priority: 3},
	}
}

// WeddingServiceTypes returns the service category table. Declaration order
// is the processing order within a city.
func WeddingServiceTypes() []ServiceTarget {
	return []ServiceTarget{
		{Type: "venue", Label: "wedding venue", Priority: 1},
		{Type: "photographer", Label: "wedding photographer", Priority: 1},
		{Type: "caterer", Label: "wedding caterer", Priority: 1},
		{Type: "florist", Label: "wedding florist", Priority: 1},
		{Type: "videographer", Label: "wedding videographer", Priority: 1},
		{Type: "musician", Label: "wedding band/DJ", Priority: 2},
		{Type: "planner", Label: "wedding planner", Priority: 1},
		{Type: "celebrant", Label: "wedding celebrant", Priority: 2},
		{Type: "cake", Label: "wedding cake designer", Priority: 2},
		{Type: "makeup", Label: "bridal makeup artist", Priority: 2},
		{Type: "hair", Label: "bridal hair stylist", Priority: 2},
		{Type: "stylist", Label: "wedding stylist", Priority: 3},
		{Type: "decorator", Label: "wedding decorator", Priority: 3},
		{Type: "transport", Label: "wedding car hire", Priority: 3},
		{Type: "rentals", Label: "wedding equipment rentals", Priority: 3},
		{Type: "stationery", Label: "wedding stationery", Priority: 3},
	}
}
