package places

import (
	"strconv"

	"poi-recommender/internal/models"
)

// placeDocument is the provider's wire shape for one result.
type placeDocument struct {
	ID         string `json:"fsq_id"`
	Name       string `json:"name"`
	Geocodes   struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
	Location struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"location"`
	Categories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"categories"`
	Distance *float64 `json:"distance,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Price    *int     `json:"price,omitempty"`
	Hours    *struct {
		OpenNow bool `json:"open_now"`
		Regular []struct {
			Day   int    `json:"day"`
			Open  string `json:"open"`
			Close string `json:"close"`
		} `json:"regular"`
	} `json:"hours,omitempty"`
	Website string `json:"website,omitempty"`
	Tel     string `json:"tel,omitempty"`
}

func (d placeDocument) toPlace() models.Place {
	p := models.Place{
		ID:   d.ID,
		Name: d.Name,
		Location: models.Location{
			Lat:     d.Geocodes.Main.Latitude,
			Lng:     d.Geocodes.Main.Longitude,
			Address: d.Location.FormattedAddress,
		},
		Distance: d.Distance,
		Rating:   d.Rating,
		Price:    d.Price,
		Website:  d.Website,
		Phone:    d.Tel,
	}

	for _, c := range d.Categories {
		p.Categories = append(p.Categories, models.Category{
			ID:   intToID(c.ID),
			Name: c.Name,
		})
	}

	if d.Hours != nil {
		hours := &models.Hours{OpenNow: d.Hours.OpenNow}
		for _, w := range d.Hours.Regular {
			hours.Weekly = append(hours.Weekly, models.DayHours{
				Day:   w.Day,
				Open:  w.Open,
				Close: w.Close,
			})
		}
		p.Hours = hours
	}

	return p
}

// Provider category ids are numeric; kept as strings internally.
func intToID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}
