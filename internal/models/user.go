package models

import "time"

// HourRange is an inclusive [Start, End] window of day hours (0-23).
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// PriceRange is the inclusive [Min, Max] price band, both within 1..4.
type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// UserPreferences is the durable per-user taste profile. Mutated only by the
// preference estimator or an explicit user edit.
type UserPreferences struct {
	Categories     []string   `json:"categories"`
	PriceRange     PriceRange `json:"priceRange"`
	MaxDistance    float64    `json:"maxDistance"` // meters, > 0
	PreferredHours HourRange  `json:"preferredHours"`
}

// DefaultPreferences is the fixed profile used when nothing is known about
// the user. Returned by value so callers cannot alias the defaults.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Categories:     []string{},
		PriceRange:     PriceRange{Min: 1, Max: 4},
		MaxDistance:    1000,
		PreferredHours: HourRange{Start: 8, End: 22},
	}
}

// User is the durable user record.
type User struct {
	ID          string          `json:"id"`
	Email       string          `json:"email,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	Preferences UserPreferences `json:"preferences"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
