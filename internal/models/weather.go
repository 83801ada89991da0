package models

import (
	"strconv"
	"time"
)

// CurrentConditions is the normalized current weather for a place.
type CurrentConditions struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Icon      string  `json:"icon"`
	Temp      int     `json:"temp"`
	Condition string  `json:"condition"`
	High      int     `json:"high"`
	Low       int     `json:"low"`
	Humidity  int     `json:"humidity"`
	Wind      float64 `json:"wind"`
	FeelsLike int     `json:"feels_like"`
}

// ForecastDay is one aggregated day of forecast or history.
type ForecastDay struct {
	Date      string `json:"date"`
	Temp      int    `json:"temp"`
	High      int    `json:"high"`
	Low       int    `json:"low"`
	Icon      string `json:"icon"`
	Condition string `json:"condition"`
}

// ForecastHour is a single 3-hour forecast sample.
type ForecastHour struct {
	Time      time.Time `json:"time"`
	Temp      int       `json:"temp"`
	Icon      string    `json:"icon"`
	Condition string    `json:"condition"`
}

// Forecast holds the daily and hourly views of a 5-day forecast.
type Forecast struct {
	City    string         `json:"city"`
	Country string         `json:"country"`
	Daily   []ForecastDay  `json:"daily"`
	Hourly  []ForecastHour `json:"hourly"`
}

// WeatherData is the canonical weather payload for one location.
// Forecast16 and Historical are only set for paid subscribers.
type WeatherData struct {
	CurrentConditions
	Forecast5  []ForecastDay `json:"forecast5"`
	Forecast16 []ForecastDay `json:"forecast16,omitempty"`
	Historical []ForecastDay `json:"historical,omitempty"`
}

// Place selects a weather location either by city name or by coordinates.
type Place struct {
	City    string
	Country string
	Lat     float64
	Lon     float64
	HasGeo  bool
}

// Query returns the place as provider query parameters.
func (p Place) Query() map[string]string {
	if p.HasGeo {
		return map[string]string{
			"lat": strconv.FormatFloat(p.Lat, 'f', -1, 64),
			"lon": strconv.FormatFloat(p.Lon, 'f', -1, 64),
		}
	}
	q := p.City
	if p.Country != "" {
		q += "," + p.Country
	}
	return map[string]string{"q": q}
}

// IsZero reports whether neither a city nor coordinates were given.
func (p Place) IsZero() bool {
	return !p.HasGeo && p.City == ""
}
