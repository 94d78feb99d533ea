package models

// Category is a single place category tag.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location holds coordinates plus the formatted address.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// DayHours is a single open/close window for one weekday.
type DayHours struct {
	Day   int    `json:"day"` // 0 = Sunday .. 6 = Saturday
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Hours is the structured weekly schedule plus the derived open-now flag.
type Hours struct {
	Weekly  []DayHours `json:"weekly,omitempty"`
	OpenNow bool       `json:"openNow"`
}

// Place is a candidate returned by the search provider. Immutable within a
// single request once fetched.
type Place struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Location   Location   `json:"location"`
	Categories []Category `json:"categories,omitempty"`
	Distance   *float64   `json:"distance,omitempty"` // meters from query origin
	Rating     *float64   `json:"rating,omitempty"`   // 0-10 scale
	Price      *int       `json:"price,omitempty"`    // 1-4 ordinal
	Hours      *Hours     `json:"hours,omitempty"`
	Website    string     `json:"website,omitempty"`
	Phone      string     `json:"phone,omitempty"`
}

// RankedPlace extends a Place with ranking attributes. Produced once per
// request and only persisted as part of the history log.
type RankedPlace struct {
	Place
	RelevanceScore    float64            `json:"relevanceScore"`
	Reasoning         string             `json:"reasoning"`
	Tags              []string           `json:"tags"`
	EstimatedBusyness string             `json:"estimatedBusyness"`
	ActionSuggestions []ActionSuggestion `json:"actionSuggestions,omitempty"`
}

// Busyness levels for RankedPlace.EstimatedBusyness.
const (
	BusynessLow    = "low"
	BusynessMedium = "medium"
	BusynessHigh   = "high"
)
